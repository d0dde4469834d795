// Command sweep generates missing budgets for every family with
// auto-generating templates. It is meant to run from cron shortly after
// each period boundary; reruns are harmless because generation is
// idempotent per template and period.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"famledger/internal/database"
	"famledger/internal/logger"
	"famledger/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Sweep error: %v", err)
	}
}

func run() error {
	refFlag := flag.String("ref", "", "reference time (RFC 3339), defaults to now")
	flag.Parse()

	ref := time.Now()
	if *refFlag != "" {
		parsed, err := time.Parse(time.RFC3339, *refFlag)
		if err != nil {
			return fmt.Errorf("invalid ref time %q: %w", *refFlag, err)
		}
		ref = parsed
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	db := dbManager.DB()
	generator := services.NewGeneratorService(db, services.NewSpendService(db))

	summary, err := generator.Sweep(ref)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	for _, outcome := range summary.Outcomes {
		if outcome.Status == services.GenerationErrored {
			logger.Get().Warnw("template failed to generate",
				"template_id", outcome.TemplateID,
				"template_name", outcome.TemplateName,
				"error", outcome.Error,
			)
		}
	}

	logger.Get().Infof("Sweep complete: %d generated, %d skipped, %d errored",
		summary.Generated, summary.Skipped, summary.Errored)
	return nil
}
