package store

import (
	"context"
	"testing"

	"assettrack/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("derives the slug from the name", func(t *testing.T) {
		category, err := env.categories.CreateCategory(ctx, "My New Category!!", "")
		require.NoError(t, err)
		assert.Equal(t, "my_new_category", category.Slug)
		assert.Equal(t, "My New Category!!", category.Name)
	})

	t.Run("uses the slug as name when none is given", func(t *testing.T) {
		category, err := env.categories.CreateCategory(ctx, "", "Tablet")
		require.NoError(t, err)
		assert.Equal(t, "tablet", category.Slug)
		assert.Equal(t, "tablet", category.Name)
	})

	t.Run("rejects a duplicate slug", func(t *testing.T) {
		_, err := env.categories.CreateCategory(ctx, "Tablets again", "tablet")
		assert.ErrorIs(t, err, types.ErrSlugTaken)
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("rejects an invalid slug", func(t *testing.T) {
		_, err := env.categories.CreateCategory(ctx, "x", "bad-slug")
		assert.ErrorIs(t, err, types.ErrInvalidSlug)
	})

	t.Run("requires a name or slug", func(t *testing.T) {
		_, err := env.categories.CreateCategory(ctx, " ", "")
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestDeleteCategoryRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	category := env.category(t, "scanner")
	env.employee(t, "E1", "e1@example.com")
	item := env.item(t, "scanner", "SC-1")

	_, err := env.ledger.Begin(ctx, "scanner", item.ID, types.BeginAssignment{
		EmployeeID:  "E1",
		StartDate:   date(t, "2024-01-01"),
		Accessories: []types.AccessoryInput{{Name: "Cable", Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, env.categories.DeleteCategory(ctx, "scanner"))

	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM categories WHERE slug = $1", "scanner"))
	for _, table := range []string{"items", "assignments", "accessory_types"} {
		assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM "+table+" WHERE category_id = $1", category.ID), table)
	}
	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM assignment_accessories"))

	_, err = env.categories.CategoryBySlug(ctx, "scanner")
	assert.ErrorIs(t, err, types.ErrCategoryNotFound)

	// the slug is free again
	_, err = env.categories.CreateCategory(ctx, "Scanners", "scanner")
	assert.NoError(t, err)
}

func TestDeleteCategoryErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.categories.DeleteCategory(ctx, "missing"), types.ErrCategoryNotFound)
	assert.ErrorIs(t, env.categories.DeleteCategory(ctx, "Bad Slug"), types.ErrInvalidSlug)
}

func TestListCategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"Laptops", "Monitors", "Mobile Phones"} {
		_, err := env.categories.CreateCategory(ctx, name, "")
		require.NoError(t, err)
	}

	page, err := env.categories.ListCategories(ctx, types.PageQuery{Q: "mo", PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "mobile_phones", page.Data[0].Slug)

	all, err := env.categories.AllCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

type memoryCache struct {
	categories []*types.Category
	sets       int
}

func (c *memoryCache) Categories(context.Context) ([]*types.Category, bool) {
	return c.categories, c.categories != nil
}

func (c *memoryCache) SetCategories(_ context.Context, categories []*types.Category) {
	c.categories = categories
	c.sets++
}

func (c *memoryCache) Invalidate(context.Context) {
	c.categories = nil
}

func TestListCategoriesUsesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cache := &memoryCache{}
	repo := NewCategoryRepository(env.pool).WithCache(cache)

	_, err := repo.CreateCategory(ctx, "Laptops", "")
	require.NoError(t, err)

	for range 2 {
		page, err := repo.ListCategories(ctx, types.PageQuery{})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
	}
	assert.Equal(t, 1, cache.sets)

	_, err = repo.CreateCategory(ctx, "Monitors", "")
	require.NoError(t, err)
	assert.Nil(t, cache.categories)

	page, err := repo.ListCategories(ctx, types.PageQuery{Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "monitors", page.Data[0].Slug)
}

func TestPageOf(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	page := pageOf(all, types.PageQuery{Page: 2, PageSize: 2})
	assert.Equal(t, []int{3, 4}, page.Data)
	assert.Equal(t, 5, page.Total)

	page = pageOf(all, types.PageQuery{Page: 3, PageSize: 2})
	assert.Equal(t, []int{5}, page.Data)

	page = pageOf(all, types.PageQuery{Page: 9, PageSize: 2})
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)

	page = pageOf(all, types.PageQuery{Page: 4611686018427387905, PageSize: 2}.Normalize())
	assert.Empty(t, page.Data)
	assert.Equal(t, types.MaxPage, page.Page)
	assert.Equal(t, 5, page.Total)
}

func TestCategoryStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.category(t, "laptop")
	env.category(t, "monitor")
	env.employee(t, "E1", "e1@example.com")
	held := env.item(t, "laptop", "L-1")
	env.item(t, "laptop", "L-2")
	env.item(t, "monitor", "M-1")

	// ends today: still counted for the holder, though no longer active
	_, err := env.ledger.Begin(ctx, "laptop", held.ID, types.BeginAssignment{
		EmployeeID: "E1",
		StartDate:  date(t, "2024-01-01"),
		EndDate:    datePtr(t, "2024-07-01"),
	})
	require.NoError(t, err)

	counts := func(stats []*types.CategoryStat) map[string]int {
		out := make(map[string]int)
		for _, s := range stats {
			out[s.Slug] = s.Count
		}
		return out
	}

	stats, err := env.categories.Stats(ctx, types.Viewer{Admin: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"laptop": 2, "monitor": 1}, counts(stats))

	stats, err = env.categories.Stats(ctx, types.Viewer{EmployeeID: "E1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"laptop": 1, "monitor": 0}, counts(stats))

	stats, err = env.categories.Stats(ctx, types.Viewer{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"laptop": 0, "monitor": 0}, counts(stats))

	_, err = env.items.ItemDetail(ctx, "laptop", held.ID, types.Viewer{EmployeeID: "E1"}, types.PageQuery{})
	assert.ErrorIs(t, err, types.ErrForbidden)
}
