// Package main provides moderator role management utilities for AuraWell.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/config"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/database"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/moderator grant <user_id>   - Grant the moderator role")
		fmt.Println("  go run ./cmd/moderator revoke <user_id>  - Revoke the moderator role")
		fmt.Println("  go run ./cmd/moderator list              - List all moderators")
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

	switch os.Args[1] {
	case "grant":
		if len(os.Args) < 3 {
			fmt.Println("Usage: go run ./cmd/moderator grant <user_id>")
			os.Exit(1)
		}
		setModerator(db, os.Args[2], true)

	case "revoke":
		if len(os.Args) < 3 {
			fmt.Println("Usage: go run ./cmd/moderator revoke <user_id>")
			os.Exit(1)
		}
		setModerator(db, os.Args[2], false)

	case "list":
		listModerators(db)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func setModerator(db *gorm.DB, userID string, grant bool) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %s not found\n", userID)
		} else {
			log.Fatalf("Database error: %v", err)
		}
		os.Exit(1)
	}

	if user.IsModerator == grant {
		if grant {
			fmt.Printf("User %s (ID: %d) is already a moderator\n", user.Username, user.ID)
		} else {
			fmt.Printf("User %s (ID: %d) is not a moderator\n", user.Username, user.ID)
		}
		return
	}

	user.IsModerator = grant
	if err := db.Save(&user).Error; err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}

	if grant {
		fmt.Printf("Granted moderator role to %s (ID: %d)\n", user.Username, user.ID)
	} else {
		fmt.Printf("Revoked moderator role from %s (ID: %d)\n", user.Username, user.ID)
	}
}

func listModerators(db *gorm.DB) {
	var moderators []models.User
	if err := db.Where("is_moderator = ?", true).Find(&moderators).Error; err != nil {
		log.Fatalf("Failed to fetch moderators: %v", err)
	}

	if len(moderators) == 0 {
		fmt.Println("No moderators found")
		return
	}

	fmt.Println("Current moderators:")
	for _, m := range moderators {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", m.ID, m.Username, m.Email)
	}
}
