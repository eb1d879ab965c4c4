package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soldwatch/harvest-cli/internal/detail"
	"github.com/soldwatch/harvest-cli/internal/pipeline"
	"github.com/soldwatch/harvest-cli/internal/source"
)

var harvestDryRun bool

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Fetch the results page, enrich sold listings, and store them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		if !harvestDryRun {
			if err := st.Migrate(ctx); err != nil {
				return err
			}
		}

		p := pipeline.New(
			cfg.Pipeline,
			source.NewAuctionResults(cfg.Source),
			detail.NewExtractor(cfg.Detail),
			st,
			pipeline.WithDryRun(harvestDryRun),
		)

		summary, err := p.Run(ctx)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	harvestCmd.Flags().BoolVar(&harvestDryRun, "dry-run", false,
		"classify and enrich but skip all database writes")
	rootCmd.AddCommand(harvestCmd)
}
