package main

import (
	"fmt"

	"github.com/meghashyamc/paperdex/db/kvdb"
	"github.com/meghashyamc/paperdex/db/searchdb"
	"github.com/meghashyamc/paperdex/services/ingest"
	"github.com/spf13/cobra"
)

func newBuildIndexCmd(opts *rootOptions) *cobra.Command {
	var input string
	var format string

	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Load papers from a JSON export or legacy SQLite database into the index",
		Long: `Reads every paper from --input and replaces the stored catalog with them.
JSON input must be an object with a "results" list. SQLite input must have a
papers table with id and raw_json columns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			sourceFormat, err := ingest.ParseFormat(format, input)
			if err != nil {
				return err
			}

			store, err := kvdb.New(logger, cfg.GetKVDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			index, err := searchdb.New(logger, cfg.GetIndexPath())
			if err != nil {
				return err
			}
			defer index.Close()

			metadata, err := ingest.New(logger, store, index).Build(cmd.Context(), input, sourceFormat)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d papers from %s (build %s)\n", metadata.RecordCount, metadata.Source, metadata.BuildID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to the papers JSON export or SQLite database")
	cmd.Flags().StringVar(&format, "format", "auto", "input format: json, sqlite or auto")
	cmd.MarkFlagRequired("input")
	return cmd
}
