// Command reconcile recomputes the denormalized post counters of users.
package main

import (
	"context"
	"log"
	"time"

	"overthinkistan/internal/config"
	"overthinkistan/internal/database"
	"overthinkistan/internal/repository"
	"overthinkistan/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	users := service.NewUserService(repository.NewUserRepository(db), nil)
	fixed, err := users.ReconcilePostCounts(ctx)
	if err != nil {
		log.Fatalf("Reconcile failed: %v", err)
	}
	log.Printf("Corrected post_count for %d users", fixed)
}
