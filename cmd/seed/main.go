// Command main runs the database seeder for AuraWell.
package main

import (
	"flag"
	"log"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/config"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/database"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of demo users to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, clean=%v\n", *numUsers, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:    *numUsers,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("All done! Demo users have the password: password123")
}
