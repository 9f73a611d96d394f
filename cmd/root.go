package main

import (
	"github.com/meghashyamc/paperdex/config"
	"github.com/meghashyamc/paperdex/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	env    string
	apiURL string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "paperdex",
		Short:         "Browse, filter and shuffle a catalog of conference papers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "", "config environment to load (defaults to $ENV, then local)")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "base URL of the paperdex API (overrides config)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newBuildIndexCmd(opts),
		newSearchCmd(opts),
		newLookupCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(o.env)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewWithLevel(cfg.GetLogLevel()), nil
}

func (o *rootOptions) baseURL(cfg *config.Config) string {
	if o.apiURL != "" {
		return o.apiURL
	}
	return cfg.GetAPIBaseURL()
}
