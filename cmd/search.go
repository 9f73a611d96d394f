package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/meghashyamc/paperdex/client"
	"github.com/meghashyamc/paperdex/db/searchdb"
	"github.com/meghashyamc/paperdex/services/browse"
	"github.com/meghashyamc/paperdex/services/catalog"
	"github.com/meghashyamc/paperdex/services/search"
	"github.com/spf13/cobra"
)

var (
	matchStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type searchOptions struct {
	filters   []string
	page      int
	pageSize  int
	sortBy    string
	sortOrder string
	seed      string
	reshuffle bool
	json      bool
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	searchOpts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search papers through the API",
		Long: `Runs a search against a running paperdex API. Without --sort-by the
results are shuffled; pass the printed seed back with --seed to page
through the same shuffle, or --reshuffle for a new one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			state, err := searchOpts.state(args)
			if err != nil {
				return err
			}

			searcher := client.NewSearcher(client.New(logger, opts.baseURL(cfg), nil))
			response, err := searcher.Submit(cmd.Context(), state)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if searchOpts.json {
				return outputSearchJSON(cmd.OutOrStdout(), response)
			}
			outputSearchResults(cmd.OutOrStdout(), state, response)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&searchOpts.filters, "filter", "f", nil, "field=value filter, repeatable")
	cmd.Flags().IntVarP(&searchOpts.page, "page", "p", 1, "1-based page number")
	cmd.Flags().IntVarP(&searchOpts.pageSize, "page-size", "n", 20, "results per page")
	cmd.Flags().StringVar(&searchOpts.sortBy, "sort-by", search.SortRandom, "field to sort by, or random")
	cmd.Flags().StringVar(&searchOpts.sortOrder, "order", search.SortOrderAsc, "sort order: asc or desc")
	cmd.Flags().StringVar(&searchOpts.seed, "seed", "", "shuffle seed to reuse")
	cmd.Flags().BoolVar(&searchOpts.reshuffle, "reshuffle", false, "shuffle with a new seed")
	cmd.Flags().BoolVar(&searchOpts.json, "json", false, "output the raw response as JSON")
	return cmd
}

func (o *searchOptions) state(args []string) (browse.State, error) {
	seed := o.seed
	if seed == "" || o.reshuffle {
		seed = browse.NewSeed()
	}

	state := browse.NewState(o.pageSize, seed)
	if len(args) > 0 {
		state = state.SetQuery(args[0])
	}
	if o.sortBy != search.SortRandom {
		state = state.SetSort(o.sortBy, o.sortOrder)
	}
	for _, filter := range o.filters {
		field, value, ok := strings.Cut(filter, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return browse.State{}, fmt.Errorf("filter %q must look like field=value", filter)
		}
		state = state.ToggleFilter(strings.TrimSpace(field), strings.TrimSpace(value))
	}
	return state.SetPage(o.page), nil
}

func outputSearchJSON(w io.Writer, response *search.Response) error {
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func outputSearchResults(w io.Writer, state browse.State, response *search.Response) {
	if response.Total == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	tokens := searchdb.QueryTokens(state.Query)
	offset := (response.Page - 1) * response.PageSize
	for i, paper := range response.Results {
		fmt.Fprintf(w, "  [%d] %s %s\n", offset+i+1, highlight(paperTitle(paper), tokens), dimStyle.Render(fmt.Sprintf("#%d", paper.ID())))
		if authors := catalog.Values(paper["authors"]); len(authors) > 0 {
			fmt.Fprintf(w, "      %s\n", highlight(strings.Join(authors, ", "), tokens))
		}
		if decision := catalog.Values(paper["decision"]); len(decision) > 0 {
			fmt.Fprintf(w, "      %s\n", dimStyle.Render(decision[0]))
		}
	}

	fmt.Fprintln(w)
	summary := fmt.Sprintf("Page %d of %d (%d papers)", response.Page, state.TotalPages(response.Total), response.Total)
	if state.SortBy == search.SortRandom {
		summary += fmt.Sprintf(", seed %s", state.Seed)
	}
	fmt.Fprintln(w, dimStyle.Render(summary))
}

func paperTitle(paper catalog.Record) string {
	if name := catalog.Values(paper["name"]); len(name) > 0 {
		return name[0]
	}
	if title := catalog.Values(paper["title"]); len(title) > 0 {
		return title[0]
	}
	return "(untitled)"
}

func highlight(text string, tokens []string) string {
	var builder strings.Builder
	for _, segment := range browse.Highlight(text, tokens) {
		if segment.IsMatch {
			builder.WriteString(matchStyle.Render(segment.Text))
			continue
		}
		builder.WriteString(segment.Text)
	}
	return builder.String()
}
