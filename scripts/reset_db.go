package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// seedPlants are loaded after a reset so the wiki has pages to revise.
var seedPlants = []struct {
	commonName     string
	scientificName string
	color          *string
	edibilities    []string
	sunPreferences []string
}{
	{"Fig", "Ficus carica", strPtr("green"), []string{"fruit"}, []string{"full_sun"}},
	{"Wild garlic", "Allium ursinum", strPtr("white"), []string{"leaves", "flowers"}, []string{"partial_shade", "full_shade"}},
	{"Elder", "Sambucus nigra", nil, []string{"flowers", "fruit"}, []string{"full_sun", "partial_shade"}},
}

const seedProfileID = "23504e74-b9e7-4a69-8003-843bad54a207"

func main() {
	fmt.Println("Reset plant wiki database for local testing")
	fmt.Println()
	fmt.Println("This deletes every revision, plant and profile and loads sample data.")
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)

	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	_ = godotenv.Load()

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "treelof"),
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE revisions, plants, profiles RESTART IDENTITY CASCADE"); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
		fmt.Println("  cleared revisions, plants, profiles")

		if _, err := tx.Exec(ctx, `
			INSERT INTO profiles (id, username, display_name)
			VALUES ($1::text::uuid, $2, $3)`,
			seedProfileID, "fern", "Fern Gardener",
		); err != nil {
			return fmt.Errorf("seed profile: %w", err)
		}

		for _, p := range seedPlants {
			if _, err := tx.Exec(ctx, `
				INSERT INTO plants (common_name, scientific_name, color, edibilities, sun_preferences)
				VALUES ($1, $2, $3, $4, $5)`,
				p.commonName, p.scientificName, p.color, p.edibilities, p.sunPreferences,
			); err != nil {
				return fmt.Errorf("seed plant %s: %w", p.commonName, err)
			}
		}
		fmt.Printf("  loaded %d plants\n", len(seedPlants))
		return nil
	})
	if err != nil {
		log.Fatalf("Reset failed: %v\n", err)
	}

	fmt.Println()
	fmt.Println("Database reset successful.")
	fmt.Printf("Sample owner id: %s\n", seedProfileID)
}

func strPtr(s string) *string { return &s }

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
