package main

import (
	"context"
	"fmt"

	"assettrack/internal/seed"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with the default categories",
	Action: func(c *cli.Context) error {
		ctx := context.Background()

		config, logger, pool, err := connect(ctx, c)
		if err != nil {
			return err
		}
		defer pool.Close()

		categoryRepo, closeCache, err := categoryRepository(ctx, config, pool, logger)
		if err != nil {
			return err
		}
		defer closeCache()

		logger.Info("seeding categories")
		if err := seed.SeedCategories(ctx, categoryRepo, logger); err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}

		return nil
	},
}
