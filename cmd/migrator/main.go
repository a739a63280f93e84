package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quiz-results/internal/config"
	"github.com/gokatarajesh/quiz-results/internal/db/migrations"
	"github.com/gokatarajesh/quiz-results/internal/db/repository"
	"github.com/gokatarajesh/quiz-results/internal/quiz"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			log.Warn().Err(err).Msg("could not load .env file")
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("migrator failed")
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Manage the quiz results database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newSchemaCmd("up", "Apply all pending migrations", migrations.Up),
		newSchemaCmd("down", "Roll back the latest migration", migrations.Down),
		newSchemaCmd("status", "Print applied and pending migrations", migrations.Status),
		newSeedCmd(),
	)
	return cmd
}

func newSchemaCmd(use, short string, run func(context.Context, *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := loadPostgres()
			if err != nil {
				return err
			}
			db, err := sql.Open("pgx", pg.DSN())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			log.Info().
				Str("host", pg.Host).
				Int("port", pg.Port).
				Str("database", pg.Database).
				Str("command", use).
				Msg("connected to database")

			if err := run(cmd.Context(), db); err != nil {
				return err
			}
			log.Info().Str("command", use).Msg("migration command finished")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quiz documents from a JSON file into the quizzes table",
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := loadPostgres()
			if err != nil {
				return err
			}
			static, err := quiz.LoadStaticFile(file)
			if err != nil {
				return err
			}

			pool, err := pgxpool.New(cmd.Context(), pg.DSN())
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			repo := repository.NewQuizRepository(pool)
			for _, q := range static.All() {
				if err := repo.Upsert(cmd.Context(), q); err != nil {
					return err
				}
				log.Info().Str("quiz_id", q.ID).Int("questions", len(q.Questions)).Msg("quiz seeded")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "configs/quizzes.json", "JSON array of quiz documents")
	return cmd
}

// loadPostgres reads only the PG_* variables, so the migrator runs without the API's Redis or JWT settings.
func loadPostgres() (config.Postgres, error) {
	var pg config.Postgres
	if err := config.ParseGroup(&pg); err != nil {
		return pg, err
	}
	if pg.User == "" || pg.Password == "" || pg.Database == "" {
		return pg, fmt.Errorf("PG_USER, PG_PASSWORD and PG_DATABASE are required")
	}
	return pg, nil
}
