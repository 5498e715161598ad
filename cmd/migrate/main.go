package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/awstrack/awstrack/internal/config"
	"github.com/awstrack/awstrack/internal/repository/sqlite"
)

// Initializes the SQLite store ahead of the first server start so the
// schema can be inspected or the file placed on the right volume.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	path := cfg.Database.Path
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqlite.Open(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to ping database: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database initialized at %s\n", path)
}
