package main

// Run database migrations:
//   go run ./cmd/migrate            (up)
//   go run ./cmd/migrate -cmd status

import (
	"context"
	"flag"
	"log"
	"os"

	"docviewer-backend/internal/shared/config"
	"docviewer-backend/internal/shared/storage/db"
)

func main() {
	command := flag.String("cmd", "up", "goose command: up, down, status, version")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, *command); err != nil {
		log.Printf("migrate %s failed: %v", *command, err)
		os.Exit(1)
	}
	log.Printf("migrate %s complete", *command)
}
