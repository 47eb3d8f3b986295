// Command migrate applies the goose migrations in db/migrations.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"readshelf/internal/logging"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	loadEnvFiles()
	logging.Init(logging.Config{Level: "info", Format: "console"})

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseDSN())
	if err != nil {
		logging.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := run(db, *command, *name, migrationsDir()); err != nil {
		logging.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
}

func run(db *sql.DB, command, name, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	goose.SetBaseFS(nil)

	switch command {
	case "up":
		if err := goose.Up(db, dir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logging.Info().Str("dir", dir).Msg("migrations applied")
	case "down":
		if err := goose.Down(db, dir); err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
		logging.Info().Msg("last migration rolled back")
	case "status":
		return goose.Status(db, dir)
	case "create":
		if name == "" {
			return fmt.Errorf("name is required for 'create'")
		}
		if err := goose.Create(nil, dir, name, "sql"); err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		logging.Info().Str("name", name).Msg("migration created")
	default:
		return fmt.Errorf("unknown command %q, use: up, down, status, create", command)
	}
	return nil
}
