package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"assettrack/internal/store"
	"assettrack/pkg/types"

	"github.com/urfave/cli/v2"
)

var categoryCommand = &cli.Command{
	Name:  "category",
	Usage: "Manage the category registry",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Create a category",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name"},
				&cli.StringFlag{Name: "slug", Aliases: []string{"s"}, Usage: "Slug, derived from the name when empty"},
			},
			Action: createCategory,
		},
		{
			Name:      "delete",
			Usage:     "Delete a category and all of its items and history",
			ArgsUsage: "<slug>",
			Action:    deleteCategory,
		},
		{
			Name:  "list",
			Usage: "List categories",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter by slug or name"},
				&cli.IntFlag{Name: "page", Value: 1},
				&cli.IntFlag{Name: "page-size", Value: types.MaxPageSize},
			},
			Action: listCategories,
		},
	},
}

func createCategory(c *cli.Context) error {
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

	category, err := categoryRepo.CreateCategory(ctx, c.String("name"), c.String("slug"))
	if err != nil {
		return err
	}

	logger.WithField("slug", category.Slug).WithField("id", category.ID).Info("category created")
	return nil
}

func deleteCategory(c *cli.Context) error {
	slug := c.Args().First()
	if slug == "" {
		return fmt.Errorf("usage: category delete <slug>")
	}

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

	if err := categoryRepo.DeleteCategory(ctx, slug); err != nil {
		return err
	}

	logger.WithField("slug", slug).Info("category deleted")
	return nil
}

func listCategories(c *cli.Context) error {
	ctx := context.Background()

	_, _, pool, err := connect(ctx, c)
	if err != nil {
		return err
	}
	defer pool.Close()

	page, err := store.NewCategoryRepository(pool).ListCategories(ctx, types.PageQuery{
		Page:     c.Int("page"),
		PageSize: c.Int("page-size"),
		Q:        c.String("query"),
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tCREATED")
	for _, category := range page.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\n", category.Slug, category.Name, category.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "\n%d of %d\t\t\n", len(page.Data), page.Total)
	return w.Flush()
}
