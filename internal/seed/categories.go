package seed

import (
	"context"
	"errors"
	"fmt"

	"assettrack/pkg/types"

	"github.com/sirupsen/logrus"
)

// DefaultCategory is a category every install starts with.
type DefaultCategory struct {
	Slug string
	Name string
}

// DefaultCategories is the source of truth for the categories created on a
// fresh install. Removing an entry here does not delete it from existing
// installs; admins delete categories through the API.
var DefaultCategories = []DefaultCategory{
	{Slug: "laptop", Name: "Laptops"},
	{Slug: "monitor", Name: "Monitors"},
	{Slug: "phone", Name: "Mobile Phones"},
}

type categoryCreator interface {
	CreateCategory(ctx context.Context, name, slug string) (*types.Category, error)
}

// SeedCategories makes sure each default category exists. Categories that
// already exist are left as they are, so it is safe to run on every start.
func SeedCategories(ctx context.Context, repo categoryCreator, logger logrus.FieldLogger) error {
	created, existing := 0, 0

	for _, def := range DefaultCategories {
		entry := logger.WithField("slug", def.Slug)

		_, err := repo.CreateCategory(ctx, def.Name, def.Slug)
		switch {
		case err == nil:
			entry.Info("created default category")
			created++
		case errors.Is(err, types.ErrSlugTaken):
			entry.Debug("default category already exists")
			existing++
		default:
			return fmt.Errorf("failed to seed category %s: %w", def.Slug, err)
		}
	}

	logger.WithFields(logrus.Fields{"created": created, "existing": existing}).Info("category seed complete")

	return nil
}
