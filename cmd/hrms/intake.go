package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/hrms/internal/intake"
	"github.com/jonathan/hrms/internal/observability"
	"github.com/spf13/cobra"
)

var (
	intakeDir        string
	intakeExtensions string
)

var intakeCmd = &cobra.Command{
	Use:   "intake [filename...]",
	Short: "Parse CV filenames into candidate identities",
	Long: "Parse CV filenames of the form Name_Mobile_Source.ext and print the " +
		"candidates they describe. Exits non-zero when any filename is malformed.",
	RunE: runIntake,
}

func init() {
	intakeCmd.Flags().StringVarP(&intakeDir, "dir", "d", "", "Parse every file in this directory")
	intakeCmd.Flags().StringVar(&intakeExtensions, "ext", strings.Join(intake.DefaultExtensions, ","), "Accepted extensions, comma separated (empty accepts any)")
	rootCmd.AddCommand(intakeCmd)
}

func runIntake(cmd *cobra.Command, args []string) error {
	names := append([]string(nil), args...)
	if intakeDir != "" {
		entries, err := os.ReadDir(intakeDir)
		if err != nil {
			return fmt.Errorf("failed to read directory: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no filenames given (pass names or --dir)")
	}

	p := &intake.Parser{}
	for _, ext := range strings.Split(intakeExtensions, ",") {
		if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			p.Extensions = append(p.Extensions, ext)
		}
	}

	results := p.ParseBatch(names)
	if verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintParseResults(results)
	} else {
		type row struct {
			*intake.ParsedCandidate
			Filename string `json:"filename"`
			Error    string `json:"error,omitempty"`
		}
		rows := make([]row, 0, len(results))
		for _, r := range results {
			out := row{ParsedCandidate: r.Candidate, Filename: r.Filename}
			if r.Err != nil {
				out.Error = r.Err.Error()
			}
			rows = append(rows, out)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	}

	return intake.BatchError(results)
}
