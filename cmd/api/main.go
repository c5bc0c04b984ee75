package main

import (
	"context"
	"log"
	"os"

	"lostfound/auth"
	"lostfound/contact"
	"lostfound/db"
	"lostfound/item"
	"lostfound/match"
	"lostfound/notify"
)

func main() {
	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")
	pool, err := db.NewPool(ctx, connString)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	authService := auth.NewService(auth.NewRepository(pool), jwtSecret)

	itemRepo := item.NewRepository(pool)
	notifyService := notify.NewService(notify.NewRepository(pool))
	matchService := match.NewService(pool, match.NewRepository(pool), itemRepo, notifyService)
	itemService := item.NewService(itemRepo, matchService)
	contactService := contact.NewService(contact.NewRepository(pool), itemRepo, authService, notify.NewRepository(pool))

	log.Printf("lostfound services ready: auth=%t items=%t matches=%t contact=%t",
		authService != nil, itemService != nil, matchService != nil, contactService != nil)
}
