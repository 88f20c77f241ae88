package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"trip-planner-service/internal/adapters/repositories"
	"trip-planner-service/internal/config"
	"trip-planner-service/internal/platform/db"
)

func openDatabase(ctx context.Context) (*sql.DB, error) {
	_ = godotenv.Load()

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return db.Open(ctx, databaseURL)
}

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the places and travel cache tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Initializing database schema...")
			if err := repositories.InitSchema(cmd.Context(), database); err != nil {
				return fmt.Errorf("schema initialization failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema ready.")
			return nil
		},
	}
}

func SeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load places from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := repositories.SeedFromJSON(cmd.Context(), database, file)
			if err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d places.\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "data/seeds/places.json", "Places JSON file")
	return cmd
}
