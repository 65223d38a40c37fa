package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jonathan/hrms/internal/db"
	"github.com/jonathan/hrms/internal/observability"
	"github.com/spf13/cobra"
)

const defaultCloseTimeout = 10 * time.Second

var (
	syncRetryDead bool
	syncSnapshot  bool
	syncTimeout   time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Deliver pending remote writes and optionally mirror the cache",
	Long: "Requeue dead letters (--retry-dead), flush them to the configured sinks, " +
		"and with --snapshot upsert every cached record into the PostgreSQL mirror.",
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncRetryDead, "retry-dead", false, "Move dead letters back onto the queue before flushing")
	syncCmd.Flags().BoolVar(&syncSnapshot, "snapshot", false, "Upsert the full local cache into DATABASE_URL")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", time.Minute, "Give up after this long")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close(defaultCloseTimeout)

	if syncSnapshot {
		if a.db == nil {
			return fmt.Errorf("--snapshot needs DATABASE_URL or database_url in the config")
		}
		snap := db.Snapshot{
			Requirements: slices.Collect(a.store.Requirements()),
			Candidates:   slices.Collect(a.store.Candidates()),
			Templates:    a.store.Templates(),
		}
		if err := a.db.SyncSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("failed to mirror snapshot: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Mirrored %d requirements, %d candidates, %d templates\n",
			len(snap.Requirements), len(snap.Candidates), len(snap.Templates))
	}

	if !a.remote {
		return fmt.Errorf("no remote configured (set SYNC_API_URL or DATABASE_URL)")
	}

	if syncRetryDead {
		n := a.outbox.Requeue()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d dead letters\n", n)
	}

	flushErr := a.outbox.Flush(ctx)
	if verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintReplication(a.outbox.Stats(), a.outbox.DeadLetters())
	}
	if flushErr != nil {
		return fmt.Errorf("replication incomplete: %w", flushErr)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Replication queue drained (%d dead letters)\n", len(a.outbox.DeadLetters()))
	return nil
}
