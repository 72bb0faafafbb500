// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the shared connection pool. ConnectDB wires it once at startup.
var DB *pgxpool.Pool

// connString prefers a full DATABASE_URL and otherwise assembles one from the
// individual POSTGRES_*/PG_* variables.
func connString() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)
}

// ConnectDB opens the pgx pool and verifies connectivity. Fatal on failure:
// the server cannot run without its durability layer.
func ConnectDB() {
	config, err := pgxpool.ParseConfig(connString())
	if err != nil {
		log.Fatalf("unable to parse pgx config: %v", err)
	}
	config.MaxConnLifetime = time.Hour

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	log.Printf("Connected to database %s on %s", os.Getenv("PG_DATABASE"), os.Getenv("PG_HOST"))
}
