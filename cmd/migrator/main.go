package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/practice-engine/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "migrator",
	Short:        "Apply practice-engine database migrations",
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *sql.DB, dir string) error {
			if err := goose.Up(db, dir); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			log.Info().Msg("migrations applied successfully")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *sql.DB, dir string) error {
			if err := goose.Down(db, dir); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			log.Info().Msg("migration rolled back successfully")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status of every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *sql.DB, dir string) error {
			return goose.Status(db, dir)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().String("dir", "db/migrations", "Directory containing migration files")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("migrator failed")
	}
}

// withDB resolves the migration directory, opens Postgres through the pgx
// stdlib driver and hands both to fn.
func withDB(cmd *cobra.Command, fn func(db *sql.DB, dir string) error) error {
	dirFlag, _ := cmd.Flags().GetString("dir")
	dir, err := filepath.Abs(dirFlag)
	if err != nil {
		return fmt.Errorf("resolve migration dir %q: %w", dirFlag, err)
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migration dir %s: %w", dir, err)
	}

	pg, err := config.LoadPostgres()
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", pg.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Str("host", pg.Host).
		Int("port", pg.Port).
		Str("database", pg.Database).
		Str("migration_dir", dir).
		Msg("connected to database")

	goose.SetTableName("goose_db_version")
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return fn(db, dir)
}
