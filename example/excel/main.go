package main

import (
	"context"
	"fmt"
	"log"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/adapters/excel"
)

func main() {
	registry := sheetdb.DefaultRegistry()

	// Excel adapter needs no authentication; the workbook is created on first write
	adapter, err := excel.New(&excel.Config{
		FilePath: "./example_data.xlsx",
		Registry: registry,
	})
	if err != nil {
		log.Fatalf("Failed to create Excel adapter: %v", err)
	}

	ctx := context.Background()
	if _, err := sheetdb.VerifyStructure(ctx, registry, adapter, nil); err != nil {
		log.Fatalf("Failed to prepare workbook: %v", err)
	}

	repo := sheetdb.NewRepository(adapter, registry, nil, excel.DefaultRepositoryConfig())
	session := sheetdb.NewSession(repo, nil)

	fmt.Println("Adding machines...")
	for _, m := range []map[string]interface{}{
		{"name": "Laser cutter", "kind": "laser", "location": "Bay 1"},
		{"name": "Press brake", "kind": "press", "location": "Bay 2", "status": "maintenance"},
		{"name": "Spot welder", "kind": "welder", "location": "Bay 2", "is_active": false},
	} {
		row, err := session.Add(ctx, "Machine", m)
		if err != nil {
			log.Fatalf("Failed to add machine: %v", err)
		}
		fmt.Printf("  %s -> %v\n", m["name"], row["machine_id"])
	}

	q, err := session.Query(ctx, "Machine")
	if err != nil {
		log.Fatalf("Failed to query machines: %v", err)
	}

	// Configuration tables default status to "active" and is_active to true
	fmt.Println("\nActive machines in Bay 2:")
	for _, m := range q.Active().Where(sheetdb.Eq("location", "Bay 2"), sheetdb.IsTrue("is_active")).All() {
		fmt.Printf("  %s (%s)\n", m.String("name"), m.String("status"))
	}

	fmt.Println("\nMoving the laser cutter...")
	if laser := q.FilterBy("kind", "laser").First(); laser != nil {
		laser.MustSet("location", "Bay 3")
		if _, err := session.Commit(ctx); err != nil {
			log.Fatalf("Failed to commit: %v", err)
		}
	}

	fmt.Println("\nRetiring the spot welder...")
	if welder := q.FilterBy("kind", "welder").First(); welder != nil {
		if _, err := session.Delete(ctx, welder, true); err != nil {
			log.Fatalf("Failed to delete: %v", err)
		}
	}

	all, err := repo.GetAll(ctx, "machines", true)
	if err != nil {
		log.Fatalf("Failed to read machines: %v", err)
	}
	fmt.Printf("\nWorkbook holds %d machine rows (%d cached tables)\n", len(all), len(repo.Cache().Tables()))
}
