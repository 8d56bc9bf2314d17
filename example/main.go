package main

import (
	"context"
	"fmt"
	"log"
	"time"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/adapters/googlesheets"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()
	registry := sheetdb.DefaultRegistry()

	adaptor, err := googlesheets.NewWithJSONKeyFile(ctx, googlesheets.Config{
		SpreadsheetID: "your-spreadsheet-id",
		Registry:      registry,
	}, "./service-account.json")
	if err != nil {
		return fmt.Errorf("failed to create adaptor: %w", err)
	}

	// Create worksheets and header rows the first time round
	report, err := sheetdb.VerifyStructure(ctx, registry, adaptor, nil)
	if err != nil {
		return fmt.Errorf("failed to verify spreadsheet: %w", err)
	}
	fmt.Printf("created %d worksheets, repaired %d\n", len(report.Created), len(report.Repaired))

	repo := sheetdb.NewRepository(adaptor, registry, nil, googlesheets.DefaultRepositoryConfig())

	// Keep the busiest tables warm in the background
	refresher := sheetdb.NewRefresher(repo, 30*time.Second, "tasks", "machines")
	refresher.Start()
	defer refresher.Stop()

	session := sheetdb.NewSession(repo, nil)

	task, err := session.Add(ctx, "Task", map[string]interface{}{
		"title":    "Cut side panels",
		"priority": 2,
		"status":   "pending",
	})
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	fmt.Printf("Added task %v\n", task["task_id"])

	q, err := session.Query(ctx, "Task")
	if err != nil {
		return fmt.Errorf("failed to query tasks: %w", err)
	}
	pending := q.Active().FilterBy("status", "pending").Limit(10).All()
	fmt.Printf("Found %d pending tasks:\n", len(pending))
	for _, row := range pending {
		fmt.Printf("  Row %d: %s (priority %d)\n", row.RowIdx(), row.String("title"), row.Int("priority"))
	}

	// Assignments are written in one batch per table on commit
	for _, row := range pending {
		row.MustSet("status", "in_progress").MustSet("started_at", time.Now())
	}
	result, err := session.Commit(ctx)
	if err != nil {
		log.Printf("Commit failed for some tables: %v", err)
	}
	fmt.Printf("Committed %d task rows\n", result.Committed["tasks"])

	return nil
}
