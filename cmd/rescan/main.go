package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"lostfound/db"
	"lostfound/item"
	"lostfound/match"
	"lostfound/notify"
)

// rescan re-runs the match creation path outside the item-creation flow, for
// operational recovery: one lost item by id, or every lost item still open.
func main() {
	var (
		flLost    = flag.String("lost", "", "lost item id to re-scan")
		flAll     = flag.Bool("all", false, "re-scan every open lost item")
		flTimeout = flag.Duration("timeout", 5*time.Minute, "overall deadline")
	)
	flag.Parse()

	if *flLost == "" && !*flAll {
		log.Fatal("usage: rescan -lost <id> | rescan -all")
	}
	if *flLost != "" {
		if _, err := uuid.Parse(*flLost); err != nil {
			log.Fatalf("invalid lost item id %q: %v", *flLost, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flTimeout)
	defer cancel()

	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	itemRepo := item.NewRepository(pool)
	notifyService := notify.NewService(notify.NewRepository(pool))
	matchService := match.NewService(pool, match.NewRepository(pool), itemRepo, notifyService)

	var lostItems []item.LostItem
	if *flAll {
		lostItems, err = itemRepo.ListOpenLost(ctx)
		if err != nil {
			log.Fatalf("list open lost items: %v", err)
		}
	} else {
		lost, err := itemRepo.GetLost(ctx, *flLost)
		if err != nil {
			log.Fatalf("load lost item %s: %v", *flLost, err)
		}
		lostItems = []item.LostItem{lost}
	}

	total := 0
	for _, lost := range lostItems {
		created := matchService.CreateForLost(ctx, lost)
		if len(created) > 0 {
			log.Printf("lost item %s (%s): created %d match(es)", lost.ID, lost.ItemName, len(created))
		}
		total += len(created)
	}
	log.Printf("rescan finished: %d lost item(s) scanned, %d match(es) created", len(lostItems), total)
}
