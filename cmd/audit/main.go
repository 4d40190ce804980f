package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lingopad/api/internal/config"
	"github.com/lingopad/api/internal/database"
	"github.com/lingopad/api/internal/seed"
	"github.com/lingopad/api/internal/validator"
)

var (
	workers    int
	outputFile string
	wordList   string
)

func main() {
	_ = godotenv.Load()

	cmd := &cobra.Command{
		Use:          "audit",
		Short:        "Report data problems in the word catalog",
		SilenceUsage: true,
		RunE:         runAudit,
	}
	cmd.Flags().IntVar(&workers, "workers", 10, "number of parallel workers")
	cmd.Flags().StringVar(&outputFile, "output", "audit_results.json", "output file for results")
	cmd.Flags().StringVar(&wordList, "wordlist", "", "optional allow-list of headwords")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAudit(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	v, err := validator.NewHeadwordValidator(wordList)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	start := time.Now()
	report, err := seed.Audit(cmd.Context(), db, v, workers)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprintf(out, "=== Audit Complete ===\n")
	fmt.Fprintf(out, "Dictionaries: %d, words: %d\n", report.Dictionaries, report.Words)
	fmt.Fprintf(out, "Issues found: %d\n", len(report.Issues))
	fmt.Fprintf(out, "Time elapsed: %v\n", elapsed)

	types := make([]string, 0, len(report.ByType))
	for typ := range report.ByType {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		fmt.Fprintf(out, "%s: %d\n", typ, report.ByType[typ])
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputFile, err)
	}
	fmt.Fprintf(out, "Results saved to %s\n", outputFile)
	return nil
}
