package main

import (
	"fmt"

	"github.com/meghashyamc/paperdex/client"
	"github.com/meghashyamc/paperdex/services/lookup"
	"github.com/spf13/cobra"
)

func newLookupCmd(opts *rootOptions) *cobra.Command {
	var author string
	var direct bool

	cmd := &cobra.Command{
		Use:   "lookup [title]",
		Short: "Find the OpenReview page of a paper, falling back to a web search link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			var link lookup.Link
			if direct {
				resolver := lookup.New(logger, nil, lookup.Options{
					BaseURL:       cfg.GetLookupBaseURL(),
					Timeout:       cfg.GetLookupTimeout(),
					RatePerSecond: cfg.GetLookupRate(),
				})
				link = resolver.Resolve(cmd.Context(), args[0], author)
			} else {
				resolved, err := client.New(logger, opts.baseURL(cfg), nil).Lookup(cmd.Context(), args[0], author)
				if err != nil {
					return err
				}
				link = *resolved
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", link.URL, link.Source)
			return nil
		},
	}

	cmd.Flags().StringVarP(&author, "author", "a", "", "an author's last name, optionally with an initial")
	cmd.Flags().BoolVar(&direct, "direct", false, "query OpenReview directly instead of going through the API")
	return cmd
}
