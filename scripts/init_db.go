//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"loan-matchmaker/internal/catalog"
	"loan-matchmaker/internal/config"
	"loan-matchmaker/internal/services/database"
)

func main() {
	fmt.Println("=== Database Initialization Script ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.DatabaseEnabled() {
		fmt.Println("❌ DB_HOST environment variable not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Connect to the maintenance database first to create ours.
	admin := *cfg
	admin.DBName = "postgres"
	fmt.Println("📡 Connecting to PostgreSQL server...")

	adminConn, err := pgx.Connect(ctx, admin.DatabaseURL())
	if err != nil {
		fmt.Printf("❌ Failed to connect to PostgreSQL: %v\n", err)
		os.Exit(1)
	}

	var exists bool
	err = adminConn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName).Scan(&exists)
	if err != nil {
		fmt.Printf("❌ Failed to check database existence: %v\n", err)
		adminConn.Close(ctx)
		os.Exit(1)
	}

	if !exists {
		fmt.Printf("📦 Creating '%s' database...\n", cfg.DBName)
		if _, err := adminConn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{cfg.DBName}.Sanitize()); err != nil {
			fmt.Printf("❌ Failed to create database: %v\n", err)
			adminConn.Close(ctx)
			os.Exit(1)
		}
		fmt.Printf("✅ Database '%s' created!\n", cfg.DBName)
	} else {
		fmt.Printf("✅ Database '%s' already exists\n", cfg.DBName)
	}
	adminConn.Close(ctx)

	fmt.Printf("📡 Connecting to %s database...\n", cfg.DBName)
	db, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	fmt.Println("✅ Connected to database successfully!")
	fmt.Println()

	fmt.Println("🚀 Applying schema...")
	if err := db.Migrate(ctx); err != nil {
		fmt.Printf("❌ Failed to apply schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Schema applied successfully!")
	fmt.Println()

	fmt.Println("📖 Loading lender catalog...")
	lenders, err := catalog.Load(cfg.LenderCatalogPath)
	if err != nil {
		fmt.Printf("❌ Failed to load catalog: %v\n", err)
		os.Exit(1)
	}

	written, err := db.Lenders().Upsert(ctx, lenders)
	if err != nil {
		fmt.Printf("❌ Failed to seed lenders: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Seeded %d lenders\n", written)

	stored, err := db.Lenders().List(ctx)
	if err != nil {
		fmt.Printf("⚠️  Warning: Could not fetch lenders: %v\n", err)
	} else {
		fmt.Println()
		fmt.Println("   📋 Lenders:")
		fmt.Println("   ─────────────────────────────────────────────────────────")
		for _, l := range stored {
			fmt.Printf("   %d. %s (%.2f%%, %s)\n", l.ID, l.Name, l.InterestRate, l.LoanPurpose)
			fmt.Printf("      Min Credit: %d | Min Income: ₹%.0f\n", l.MinCreditScore, l.MinIncome)
		}
		fmt.Println("   ─────────────────────────────────────────────────────────")
	}

	fmt.Println()
	fmt.Println("🎉 Database initialization completed successfully!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Test the connections: go run scripts/test_connection.go")
	fmt.Println("  2. Start the API: go run ./cmd/server")
}
