package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assettrack/internal/utils"
	"assettrack/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const itemTableName = "items"

var (
	itemColumns     = utils.StructTagValues(types.Item{})
	itemViewColumns = append(
		utils.PrefixSliceOfStrings("i", itemColumns),
		"e.name AS employee_name",
		"e.email AS employee_email",
	)
)

type ItemRepository struct {
	pool  *pgxpool.Pool
	clock Clock
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool, clock: time.Now}
}

func (r *ItemRepository) WithClock(clock Clock) *ItemRepository {
	r.clock = clock
	return r
}

// ListItems pages through a category's items. Admins see every item; other
// viewers see only items they hold an assignment on through today.
func (r *ItemRepository) ListItems(ctx context.Context, slug string, viewer types.Viewer, pq types.PageQuery) (*types.Page[*types.ItemView], error) {
	pq = pq.Normalize()

	category, err := r.category(ctx, slug)
	if err != nil {
		return nil, err
	}

	where := sq.And{sq.Eq{"i.category_id": category.ID}}
	if !viewer.Admin {
		if viewer.EmployeeID == "" {
			return types.NewPage[*types.ItemView](nil, 0, pq), nil
		}
		where = append(where, sq.Expr(
			"EXISTS (SELECT 1 FROM assignments a WHERE a.item_id = i.id AND a.employee_id = ? AND "+heldOn("a")+")",
			viewer.EmployeeID, r.clock.Today(),
		))
	}
	if q := strings.TrimSpace(pq.Q); q != "" {
		w := "%" + q + "%"
		where = append(where, sq.Or{
			sq.ILike{"i.brand": w},
			sq.ILike{"i.serial_number": w},
			sq.ILike{"i.condition": w},
			sq.ILike{"e.name": w},
			sq.ILike{"e.email": w},
		})
	}

	base := psql().
		Select().
		From(itemTableName + " i").
		LeftJoin(employeeTableName + " e ON e.employee_id = i.current_holder").
		Where(where)

	countQuery, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate item count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}

	query, args, err := base.
		Columns(itemViewColumns...).
		OrderBy("i.updated_at DESC", "i.id DESC").
		Limit(uint64(pq.PageSize)).
		Offset(pq.Offset()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate items query: %w", err)
	}

	var items []*types.ItemView
	if err := pgxscan.Select(ctx, r.pool, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}

	return types.NewPage(items, total, pq), nil
}

func (r *ItemRepository) Item(ctx context.Context, slug, id string) (*types.ItemView, error) {
	category, err := r.category(ctx, slug)
	if err != nil {
		return nil, err
	}
	return r.item(ctx, category.ID, id)
}

func (r *ItemRepository) item(ctx context.Context, categoryID, id string) (*types.ItemView, error) {
	query, args, err := psql().
		Select(itemViewColumns...).
		From(itemTableName + " i").
		LeftJoin(employeeTableName + " e ON e.employee_id = i.current_holder").
		Where(sq.Eq{"i.id": id, "i.category_id": categoryID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate item query: %w", err)
	}

	var item types.ItemView
	err = pgxscan.Get(ctx, r.pool, &item, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to fetch item: %w", err)
	}

	return &item, nil
}

// ItemDetail returns the item with a page of its history. Non-admin viewers
// must hold an active assignment on the item.
func (r *ItemRepository) ItemDetail(ctx context.Context, slug, id string, viewer types.Viewer, history types.PageQuery) (*types.ItemDetail, error) {
	item, err := r.Item(ctx, slug, id)
	if err != nil {
		return nil, err
	}

	if !viewer.Admin {
		if viewer.EmployeeID == "" {
			return nil, types.ErrForbidden
		}
		ok, err := holdsActive(ctx, r.pool, id, viewer.EmployeeID, r.clock.Today())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.ErrForbidden
		}
	}

	rows, meta, err := itemHistory(ctx, r.pool, id, history)
	if err != nil {
		return nil, err
	}

	return &types.ItemDetail{Item: item, History: rows, HistoryMeta: meta}, nil
}

func (r *ItemRepository) CreateItem(ctx context.Context, slug string, in types.ItemInput) (*types.Item, error) {
	category, err := r.category(ctx, slug)
	if err != nil {
		return nil, err
	}

	item, err := itemFromInput(in)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	item.ID = utils.NanoID()
	item.CategoryID = category.ID
	item.CreatedAt = now
	item.UpdatedAt = now

	query, args, err := psql().
		Insert(itemTableName).
		SetMap(utils.StructToMap(item)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate insert item query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrSerialTaken
		}
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}

	return item, nil
}

// UpdateItem overwrites the editable fields. The holder is owned by the
// ledger and is never written here.
func (r *ItemRepository) UpdateItem(ctx context.Context, slug, id string, in types.ItemInput) error {
	category, err := r.category(ctx, slug)
	if err != nil {
		return err
	}

	item, err := itemFromInput(in)
	if err != nil {
		return err
	}

	query, args, err := psql().
		Update(itemTableName).
		SetMap(map[string]any{
			"brand":              item.Brand,
			"serial_number":      item.SerialNumber,
			"start_date":         item.StartDate,
			"condition":          item.Condition,
			"condition_comments": item.ConditionComments,
			"updated_at":         time.Now(),
		}).
		Where(sq.Eq{"id": id, "category_id": category.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update item query for item %s: %w", id, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrSerialTaken
		}
		return fmt.Errorf("failed to update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrItemNotFound
	}

	return nil
}

func (r *ItemRepository) category(ctx context.Context, slug string) (*types.Category, error) {
	if !utils.IsValidSlug(slug) {
		return nil, types.ErrInvalidSlug
	}
	return categoryBySlug(ctx, r.pool, slug, false)
}

func itemFromInput(in types.ItemInput) (*types.Item, error) {
	serial := strings.TrimSpace(in.SerialNumber)
	if serial == "" {
		return nil, types.Invalid("serial_number required")
	}

	startDate, err := utils.ParseDate(in.StartDate)
	if err != nil {
		return nil, types.Invalid("start_date: %v", err)
	}

	optional := func(s string) *string {
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
		return utils.StringPtr(s)
	}

	return &types.Item{
		Brand:             optional(in.Brand),
		SerialNumber:      serial,
		StartDate:         startDate,
		Condition:         optional(in.Condition),
		ConditionComments: optional(in.ConditionComments),
	}, nil
}
