// Command blacklist_seed loads IP blacklist entries from a YAML file.
//
//   - ip: 203.0.113.7
//     reason: card testing
//
// Re-running the seed refreshes reasons without duplicating rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"orus-risk/internal/config"
	"orus-risk/internal/repositories"

	"gopkg.in/yaml.v3"
)

type seedEntry struct {
	IP     string `yaml:"ip"`
	Reason string `yaml:"reason"`
}

func main() {
	path := flag.String("file", "", "YAML file with blacklist entries")
	addedBy := flag.String("added-by", "seed", "author recorded on each entry")
	flag.Parse()

	config.LoadEnv()

	if *path == "" {
		*path = os.Getenv("BLACKLIST_SEED_FILE")
	}
	if *path == "" {
		log.Fatal("-file or BLACKLIST_SEED_FILE must be set")
	}

	entries, err := loadEntries(*path)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	db, err := repositories.OpenPostgres(repositories.PostgresDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("⚠️ Failed to close PostgreSQL connection: %v", err)
			}
		}
	}()
	if err := repositories.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	repo := repositories.NewBlacklistRepository(db)
	ctx := context.Background()
	seeded := 0
	for _, e := range entries {
		if _, err := repo.Add(ctx, e.IP, e.Reason, *addedBy); err != nil {
			log.Printf("⚠️ Skipping %s: %v", e.IP, err)
			continue
		}
		seeded++
	}
	log.Printf("✅ Seeded %d of %d blacklist entries", seeded, len(entries))
}

func loadEntries(path string) ([]seedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []seedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}
