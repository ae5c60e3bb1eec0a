package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"maternar/config"
	"maternar/db"
	"maternar/models"
	"maternar/store"
	"maternar/utils"
)

func main() {
	// Parse command line flags
	email := flag.String("email", "", "Admin email (required)")
	password := flag.String("password", "", "Admin password (required for new accounts)")
	firstName := flag.String("first", "", "First name (required for new accounts)")
	lastName := flag.String("last", "", "Last name (required for new accounts)")
	configPath := flag.String("config", "config/config.yml", "Path to config file")
	flag.Parse()

	if *email == "" {
		fmt.Println("Error: email is required")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("addadmin needs the postgres driver, config has %q", cfg.Database.Driver)
	}

	conn, err := db.Open(db.Options{URL: cfg.Database.URL, Timezone: cfg.Database.Timezone})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(conn)
	repo := db.NewRepository(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	normalized := strings.ToLower(strings.TrimSpace(*email))
	existing, err := repo.GetUserByEmail(ctx, normalized)
	switch {
	case err == nil:
		// Promote the existing account
		existing.Role = models.RoleAdmin
		existing.IsActive = true
		if *password != "" {
			if existing.PasswordHash, err = utils.HashPassword(*password, cfg.Auth.BcryptCost); err != nil {
				log.Fatalf("Failed to hash password: %v", err)
			}
		}
		if err := repo.UpdateUser(ctx, existing); err != nil {
			log.Fatalf("Failed to promote user: %v", err)
		}
		fmt.Printf("User %s promoted to admin (ID %d)\n", existing.Email, existing.ID)
		return
	case !errors.Is(err, store.ErrNotFound):
		log.Fatalf("Database error: %v", err)
	}

	if *password == "" || *firstName == "" || *lastName == "" {
		fmt.Println("Error: password, first and last are required to create an admin")
		os.Exit(1)
	}
	if len(*password) < cfg.Auth.PasswordMinLength {
		log.Fatalf("Password must be at least %d characters", cfg.Auth.PasswordMinLength)
	}

	hash, err := utils.HashPassword(*password, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	admin := &models.User{
		Email:        normalized,
		Username:     utils.UsernameFromEmail(normalized),
		FirstName:    strings.TrimSpace(*firstName),
		LastName:     strings.TrimSpace(*lastName),
		Role:         models.RoleAdmin,
		IsActive:     true,
		PasswordHash: hash,
		Level:        1,
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Printf("Admin created successfully!\n")
	fmt.Printf("   ID: %d\n", admin.ID)
	fmt.Printf("   Email: %s\n", admin.Email)
	fmt.Printf("   Username: %s\n", admin.Username)
}
