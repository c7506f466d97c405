// migrate applies the identity store migrations from embedded SQL; run with go run ./cmd/migrate.
// DATABASE_URL may be a Postgres URL or sqlite3://<path>.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"device-checkin/internal/config"
	"device-checkin/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; set a Postgres URL or sqlite3://<path>")
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
