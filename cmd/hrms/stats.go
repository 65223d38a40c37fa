package main

import (
	"context"
	"encoding/json"

	"github.com/jonathan/hrms/internal/observability"
	"github.com/spf13/cobra"
)

var (
	statsActor string
	statsRole  string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard counters from the local cache",
	RunE:  runStats,
}

func init() {
	actorFlags(statsCmd, &statsActor, &statsRole)
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	actor, err := parseActor(statsActor, statsRole)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(context.Background(), cfg, false)
	if err != nil {
		return err
	}
	defer a.close(defaultCloseTimeout)

	st, err := a.reports.Stats(actor)
	if err != nil {
		return err
	}

	if verbose {
		p := observability.NewPrinter(cmd.OutOrStdout())
		p.PrintStats(st)
		p.PrintReplication(a.outbox.Stats(), a.outbox.DeadLetters())
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
