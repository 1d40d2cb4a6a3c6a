package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/grant-match/internal/db"
)

func main() {
	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	grants, err := store.UpcomingDeadlines(ctx, 60, 20)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Grant", "Agency", "Status", "Closing", "Days Left"})

	today := time.Now().Truncate(24 * time.Hour)
	for _, g := range grants {
		closing := "unknown"
		daysLeft := ""
		if g.ClosingDate != nil {
			closing = g.ClosingDate.Format("2006-01-02")
			daysLeft = fmt.Sprintf("%d", int(g.ClosingDate.Sub(today).Hours()/24))
		}
		t.AppendRow(table.Row{g.Title, g.AgencyAcronym, g.Status, closing, daysLeft})
	}
	t.Render()
}
