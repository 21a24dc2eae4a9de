package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/config"
	"github.com/plantnet/plantnet-server/database/seeders"
	"github.com/plantnet/plantnet-server/pkg/database"
)

// bootDB loads config and opens the MongoDB connection.
func bootDB(ctx context.Context) (*database.Mongo, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	return database.Connect(ctx, config.MongoURI(), config.MongoDatabase())
}

// plantnet migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MongoDB indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		db, err := bootDB(ctx)
		if err != nil {
			return err
		}
		defer db.Disconnect(context.Background()) //nolint:errcheck

		indexes := repositories.Indexes()
		if err := db.EnsureIndexes(ctx, indexes); err != nil {
			return err
		}
		fmt.Printf("Ensured %d indexes.\n", len(indexes))
		return nil
	},
}

// plantnet seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo users and catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		db, err := bootDB(ctx)
		if err != nil {
			return err
		}
		defer db.Disconnect(context.Background()) //nolint:errcheck

		if err := seeders.RunAll(ctx, repositories.NewMongoStore(db)); err != nil {
			return err
		}
		fmt.Println("Seeding complete.")
		return nil
	},
}
