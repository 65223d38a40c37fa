package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/jonathan/hrms/internal/observability"
	"github.com/jonathan/hrms/internal/pipeline"
	"github.com/jonathan/hrms/internal/types"
	"github.com/spf13/cobra"
)

var (
	queueRequirement string
	queueRole        string
)

var queueCmd = &cobra.Command{
	Use:   "queue <stage>",
	Short: "List the candidates waiting in a pipeline stage",
	Long: "List the candidates waiting in a stage from the local cache. Stages: " +
		"shortlisting, telephonic, owner-review, on-hold, schedule, walkins.",
	Args: cobra.ExactArgs(1),
	RunE: runQueue,
}

func init() {
	queueCmd.Flags().StringVar(&queueRequirement, "requirement", "", "Only candidates for this requirement ID")
	queueCmd.Flags().StringVar(&queueRole, "job-role", "", "Only candidates for this job role")
	rootCmd.AddCommand(queueCmd)
}

func runQueue(cmd *cobra.Command, args []string) error {
	stage, ok := pipeline.ParseStage(args[0])
	if !ok {
		names := make([]string, len(pipeline.StageOrder))
		for i, s := range pipeline.StageOrder {
			names[i] = string(s)
		}
		return fmt.Errorf("unknown stage %q (want one of %s)", args[0], strings.Join(names, ", "))
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

	list := slices.Collect(a.pipeline.Queue(stage, types.CandidateFilter{
		RequirementID: queueRequirement,
		CurrentRole:   queueRole,
	}))

	if verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintQueue(string(stage), list)
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}
