// Command main runs the database seeder for Overthinkistan.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"overthinkistan/internal/config"
	"overthinkistan/internal/database"
	"overthinkistan/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	shouldClean := flag.Bool("clean", false, "Delete users, categories and posts before seeding")
	categoriesFile := flag.String("categories", "", "YAML file replacing the bundled categories")
	fakerSeed := flag.Int64("faker-seed", 0, "Seed for reproducible fake data (0 is random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		NumUsers:  *numUsers,
		NumPosts:  *numPosts,
		Clean:     *shouldClean,
		FakerSeed: *fakerSeed,
	}
	if *categoriesFile != "" {
		f, err := os.Open(*categoriesFile)
		if err != nil {
			log.Fatalf("Failed to open categories file: %v", err)
		}
		opts.Categories, err = seed.LoadCategories(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("Invalid categories file: %v", err)
		}
	}

	summary, err := seed.Seed(context.Background(), db, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d categories, %d users and %d posts", summary.Categories, summary.Users, summary.Posts)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
