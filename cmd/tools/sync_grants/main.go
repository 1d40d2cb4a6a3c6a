package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/grant-match/internal/db"
	"github.com/david/grant-match/internal/ingest"
)

func main() {
	sample := flag.Bool("sample", false, "load the built-in sample grants instead of fetching from the portal")
	force := flag.Bool("force", false, "overwrite existing grant fields instead of filling only missing ones")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	store := db.NewStore(pool)

	cfg, err := ingest.LoadPortalConfig()
	if err != nil {
		log.Fatalf("Failed to load portal config: %v", err)
	}

	syncer := ingest.NewSyncer(store, ingest.NewPortalClient(cfg))
	syncer.Force = *force

	started := time.Now()
	var stats ingest.SyncStats
	if *sample {
		stats, err = syncer.SyncSample(ctx)
	} else {
		stats, err = syncer.Sync(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		if !*sample {
			fmt.Fprintln(os.Stderr, "Hint: use --sample to load the built-in demo grants when the portal is unreachable")
		}
		os.Exit(1)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Created", "Updated", "Total", "Duration"})
	t.AppendRow(table.Row{stats.Created, stats.Updated, stats.Total, time.Since(started).Round(time.Millisecond)})
	t.Render()
}
