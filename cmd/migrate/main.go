// Command migrate applies the SQL files under migrations/ in
// lexicographic order. Files are idempotent (CREATE ... IF NOT
// EXISTS), so rerunning up against an existing database is safe.
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aritzm/guidepost/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("guidepost-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		migrateUp(ctx, pool)
	case "down":
		log.Fatal("down migrations are not supported; restore from a dump instead")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool) {
	files, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil || len(files) == 0 {
		log.Fatalf("no migration files found: %v", err)
	}
	sort.Strings(files)

	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			log.Fatalf("apply %s: %v", f, err)
		}
		log.Printf("applied %s", f)
	}

	log.Printf("%d migrations applied", len(files))
}
