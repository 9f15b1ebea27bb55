// Package main provides admin management utilities for Overthinkistan.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"overthinkistan/internal/config"
	"overthinkistan/internal/database"
	"overthinkistan/internal/models"
	"overthinkistan/internal/repository"
)

// main promotes or demotes users by refId and lists admins
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin/main.go promote <user_ref_id>   - Promote user to admin")
		fmt.Println("  go run ./cmd/admin/main.go demote <user_ref_id>    - Demote admin to user")
		fmt.Println("  go run ./cmd/admin/main.go list-admins             - List all ACTIVE admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin/main.go %s <user_ref_id>\n", command)
			os.Exit(1)
		}
		role := models.RoleAdmin
		if command == "demote" {
			role = models.RoleUser
		}
		setRole(ctx, users, os.Args[2], role)

	case "list-admins":
		listAdmins(ctx, users)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setRole(ctx context.Context, users repository.UserRepository, refID, role string) {
	user, err := users.GetByRefID(ctx, refID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			fmt.Println(err.Error())
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if user.Role == role {
		fmt.Printf("User %s (%s) already has role %s\n", user.Username, user.RefID, role)
		return
	}

	if _, err := users.UpdateByRefID(ctx, refID, repository.Changes{"role": role}, ""); err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("Set role of %s (%s) to %s\n", user.Username, user.RefID, role)
}

func listAdmins(ctx context.Context, users repository.UserRepository) {
	admins, err := users.ListActive(ctx, repository.Filter{"role": models.RoleAdmin})
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("Current admins:")
	for _, admin := range admins {
		fmt.Printf("refId: %s | username: %s | email: %s\n", admin.RefID, admin.Username, admin.Email)
	}
}
