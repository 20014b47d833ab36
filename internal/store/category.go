package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"assettrack/internal/db"
	"assettrack/internal/utils"
	"assettrack/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const categoryTableName = "categories"

var categoryColumns = utils.StructTagValues(types.Category{})

// CategoryCache holds the full category list between writes.
type CategoryCache interface {
	Categories(ctx context.Context) ([]*types.Category, bool)
	SetCategories(ctx context.Context, categories []*types.Category)
	Invalidate(ctx context.Context)
}

type noopCache struct{}

func (noopCache) Categories(context.Context) ([]*types.Category, bool) { return nil, false }
func (noopCache) SetCategories(context.Context, []*types.Category) {}
func (noopCache) Invalidate(context.Context) {}

type CategoryRepository struct {
	pool  *pgxpool.Pool
	clock Clock
	cache CategoryCache
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool, clock: time.Now, cache: noopCache{}}
}

func (r *CategoryRepository) WithCache(cache CategoryCache) *CategoryRepository {
	if cache != nil {
		r.cache = cache
	}
	return r
}

func (r *CategoryRepository) WithClock(clock Clock) *CategoryRepository {
	r.clock = clock
	return r
}

func (r *CategoryRepository) AllCategories(ctx context.Context) ([]*types.Category, error) {
	if categories, ok := r.cache.Categories(ctx); ok {
		return categories, nil
	}

	query, args, err := psql().
		Select(categoryColumns...).
		From(categoryTableName).
		OrderBy("name ASC", "slug ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate categories query: %w", err)
	}

	var categories = make([]*types.Category, 0)
	err = pgxscan.Select(ctx, r.pool, &categories, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	r.cache.SetCategories(ctx, categories)

	return categories, nil
}

// ListCategories pages through the registry, optionally filtered by a
// substring of the slug or name.
func (r *CategoryRepository) ListCategories(ctx context.Context, pq types.PageQuery) (*types.Page[*types.Category], error) {
	pq = pq.Normalize()

	q := strings.TrimSpace(pq.Q)
	if q == "" {
		all, err := r.AllCategories(ctx)
		if err != nil {
			return nil, err
		}
		return pageOf(all, pq), nil
	}

	w := "%" + q + "%"
	var where sq.Sqlizer = sq.Or{sq.ILike{"slug": w}, sq.ILike{"name": w}}

	countQuery, countArgs, err := psql().Select("COUNT(*)").From(categoryTableName).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate category count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	query, args, err := psql().
		Select(categoryColumns...).
		From(categoryTableName).
		Where(where).
		OrderBy("name ASC", "slug ASC").
		Limit(uint64(pq.PageSize)).
		Offset(pq.Offset()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate categories query: %w", err)
	}

	var categories []*types.Category
	err = pgxscan.Select(ctx, r.pool, &categories, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	return types.NewPage(categories, total, pq), nil
}

// pageOf slices an already ordered list the way LIMIT/OFFSET would.
func pageOf[T any](all []T, pq types.PageQuery) *types.Page[T] {
	start := min(int(pq.Offset()), len(all))
	end := min(start+pq.PageSize, len(all))
	return types.NewPage(all[start:end], len(all), pq)
}

func (r *CategoryRepository) CategoryBySlug(ctx context.Context, slug string) (*types.Category, error) {
	if !utils.IsValidSlug(slug) {
		return nil, types.ErrInvalidSlug
	}
	return categoryBySlug(ctx, r.pool, slug, false)
}

func categoryBySlug(ctx context.Context, q querier, slug string, forUpdate bool) (*types.Category, error) {
	builder := psql().
		Select(categoryColumns...).
		From(categoryTableName).
		Where(sq.Eq{"slug": slug}).
		Limit(1)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate category query: %w", err)
	}

	var category types.Category
	err = pgxscan.Get(ctx, q, &category, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}

	return &category, nil
}

// CreateCategory registers a new category. The slug is taken as given, or
// derived from the name when empty, and must be unique.
func (r *CategoryRepository) CreateCategory(ctx context.Context, name, slug string) (*types.Category, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" && slug == "" {
		return nil, types.Invalid("name or slug required")
	}
	if slug == "" {
		slug = utils.Slugify(name)
	}
	if !utils.IsValidSlug(slug) {
		return nil, types.ErrInvalidSlug
	}
	if name == "" {
		name = slug
	}

	now := time.Now()
	category := &types.Category{
		ID:        utils.NanoID(),
		Slug:      slug,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := categoryBySlug(ctx, tx, slug, true)
		switch {
		case err == nil:
			return types.ErrSlugTaken
		case !errors.Is(err, types.ErrCategoryNotFound):
			return err
		}

		query, args, err := psql().
			Insert(categoryTableName).
			SetMap(utils.StructToMap(category)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert query: %w", err)
		}

		_, err = tx.Exec(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return types.ErrSlugTaken
			}
			return fmt.Errorf("failed to insert category: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Invalidate(ctx)

	return category, nil
}

// DeleteCategory removes a category and everything recorded under it,
// children before parents, in one transaction.
func (r *CategoryRepository) DeleteCategory(ctx context.Context, slug string) error {
	if !utils.IsValidSlug(slug) {
		return types.ErrInvalidSlug
	}

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		category, err := categoryBySlug(ctx, tx, slug, true)
		if err != nil {
			return err
		}

		steps := []struct {
			table string
			where sq.Sqlizer
		}{
			{"assignment_accessories", sq.Expr("assignment_id IN (SELECT id FROM assignments WHERE category_id = ?)", category.ID)},
			{"assignments", sq.Eq{"category_id": category.ID}},
			{"items", sq.Eq{"category_id": category.ID}},
			{"request_item_accessories", sq.Expr("accessory_type_id IN (SELECT id FROM accessory_types WHERE category_id = ?)", category.ID)},
			{"request_accessories", sq.Expr("accessory_type_id IN (SELECT id FROM accessory_types WHERE category_id = ?)", category.ID)},
			{"accessory_types", sq.Eq{"category_id": category.ID}},
			{categoryTableName, sq.Eq{"id": category.ID}},
		}

		for _, step := range steps {
			query, args, err := psql().Delete(step.table).Where(step.where).ToSql()
			if err != nil {
				return fmt.Errorf("failed to generate delete query for %s: %w", step.table, err)
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to delete from %s: %w", step.table, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.cache.Invalidate(ctx)

	return nil
}

// Stats counts items per category. Admins get every item; other viewers get
// the distinct items they hold through today inclusive.
func (r *CategoryRepository) Stats(ctx context.Context, viewer types.Viewer) ([]*types.CategoryStat, error) {
	builder := psql().
		Select().
		From(categoryTableName + " c").
		GroupBy("c.id", "c.slug", "c.name").
		OrderBy("c.name ASC", "c.slug ASC")

	if viewer.Admin {
		builder = builder.
			Columns("c.slug", "c.name", "COUNT(i.id) AS count").
			LeftJoin("items i ON i.category_id = c.id")
	} else {
		builder = builder.
			Columns("c.slug", "c.name", "COUNT(DISTINCT a.item_id) AS count").
			LeftJoin("assignments a ON a.category_id = c.id AND a.employee_id = ? AND "+heldOn("a"), viewer.EmployeeID, r.clock.Today())
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate category stats query: %w", err)
	}

	var stats = make([]*types.CategoryStat, 0)
	err = pgxscan.Select(ctx, r.pool, &stats, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category stats: %w", err)
	}

	return stats, nil
}
