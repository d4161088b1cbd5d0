// Command migrate applies or rolls back SQL migrations and seeds.
//
// Usage:
//
//	migrate -dsn postgres://... up|down|status|seed
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"issuedesk.org/internal/migrate"
	"issuedesk.org/internal/store/pg"
)

func main() {
	var (
		dsn           = flag.String("dsn", os.Getenv("ISSUEDESK_PG_DSN"), "Postgres DSN")
		migrationsDir = flag.String("migrations", "ops/migrations/sql", "migrations directory")
		seedsDir      = flag.String("seeds", "ops/migrations/seeds", "seeds directory")
	)
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		fmt.Fprintln(os.Stderr, "usage: migrate [-dsn ...] up|down|status|seed")
		os.Exit(2)
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "migrate: -dsn or ISSUEDESK_PG_DSN is required")
		os.Exit(2)
	}

	store, err := pg.Open(*dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), *migrationsDir, *seedsDir)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch cmd {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var applied []string
		applied, err = mgr.Status(ctx)
		if err == nil {
			if len(applied) == 0 {
				fmt.Println("no migrations applied")
			}
			for _, name := range applied {
				fmt.Println(name)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "migrate: unknown command %q\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %s: %v\n", cmd, err)
		os.Exit(1)
	}
}
