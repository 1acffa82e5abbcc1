package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"cerbero.org/internal/migrate"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("CERBERO_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "ops/migrations/sql", "Path to SQL migrations")
		seedsPath      = flag.String("seeds", "ops/migrations/seeds", "Path to SQL seeds")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or CERBERO_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status|pending]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	runner := migrate.NewRunner(db, *migrationsPath, *seedsPath)

	switch cmd := flag.Arg(0); cmd {
	case "up":
		applied, err := runner.Up(ctx)
		exitOn(cmd, err)
		report("applied", applied)
	case "down":
		name, err := runner.Down(ctx)
		exitOn(cmd, err)
		fmt.Printf("rolled back %s\n", name)
	case "seed":
		seeded, err := runner.Seed(ctx)
		exitOn(cmd, err)
		report("seeded", seeded)
	case "status":
		history, err := runner.Status(ctx)
		exitOn(cmd, err)
		for _, name := range history {
			fmt.Println(name)
		}
	case "pending":
		pending, err := runner.Pending(ctx)
		exitOn(cmd, err)
		for _, name := range pending {
			fmt.Println(name)
		}
	default:
		log.Fatalf("unknown command %q", cmd)
	}
}

func exitOn(cmd string, err error) {
	if err != nil {
		log.Fatalf("migrate %s: %v", cmd, err)
	}
}

func report(verb string, names []string) {
	if len(names) == 0 {
		fmt.Println("nothing to do")
		return
	}
	for _, name := range names {
		fmt.Printf("%s %s\n", verb, name)
	}
}
