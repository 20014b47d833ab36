package store

import (
	"context"
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

const assignmentTableName = "assignments"

var assignmentColumns = utils.StructTagValues(types.Assignment{})

// Two notions of "current" coexist. activeOn is strict: an assignment whose
// end date is today is already over. It guards begin/end, the holder
// recompute and item visibility. heldOn includes today and is used by the
// self-service stats and item listings.
const (
	activeCond = "(%[1]s.end_date IS NULL OR %[1]s.end_date > ?)"
	heldCond   = "(%[1]s.end_date IS NULL OR %[1]s.end_date >= ?)"
)

func activeOn(alias string) string { return fmt.Sprintf(activeCond, alias) }

func heldOn(alias string) string { return fmt.Sprintf(heldCond, alias) }

// historyOrder puts the most recent assignment first. created_at breaks ties
// between rows sharing a start date, since ids carry no order.
var historyOrder = []string{"a.start_date DESC", "a.created_at DESC", "a.id DESC"}

type LedgerRepository struct {
	pool  *pgxpool.Pool
	clock Clock
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool, clock: time.Now}
}

func (r *LedgerRepository) WithClock(clock Clock) *LedgerRepository {
	r.clock = clock
	return r
}

// ActiveHolder returns the most recent active assignment of the item, or
// nil when the item is unassigned.
func (r *LedgerRepository) ActiveHolder(ctx context.Context, slug, itemID string) (*types.Assignment, error) {
	category, err := r.category(ctx, r.pool, slug)
	if err != nil {
		return nil, err
	}

	query, args, err := psql().
		Select(utils.PrefixSliceOfStrings("a", assignmentColumns)...).
		From(assignmentTableName+" a").
		Where(sq.Eq{"a.item_id": itemID, "a.category_id": category.ID}).
		Where(sq.Expr(activeOn("a"), r.clock.Today())).
		OrderBy(historyOrder...).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate active holder query: %w", err)
	}

	var assignment types.Assignment
	err = pgxscan.Get(ctx, r.pool, &assignment, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch active holder: %w", err)
	}

	return &assignment, nil
}

// Begin opens an assignment of the item to an employee. It fails with a
// conflict while another assignment is active and never replaces one.
func (r *LedgerRepository) Begin(ctx context.Context, slug, itemID string, in types.BeginAssignment) (*types.Assignment, error) {
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" || in.StartDate.IsZero() {
		return nil, types.Invalid("employee_id and start_date required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, types.Invalid("end_date before start_date")
	}
	if !utils.IsValidSlug(slug) {
		return nil, types.ErrInvalidSlug
	}

	today := r.clock.Today()
	assignment := &types.Assignment{
		ID:         utils.NanoID(),
		ItemID:     itemID,
		EmployeeID: utils.StringPtr(employeeID),
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		CreatedAt:  time.Now(),
	}

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		category, err := r.category(ctx, tx, slug)
		if err != nil {
			return err
		}
		assignment.CategoryID = category.ID

		if err := lockItem(ctx, tx, category.ID, itemID); err != nil {
			return err
		}

		active, err := hasActive(ctx, tx, itemID, today)
		if err != nil {
			return err
		}
		if active {
			return types.ErrActiveAssignment
		}

		exists, err := employeeExists(ctx, tx, employeeID)
		if err != nil {
			return err
		}
		if !exists {
			return types.ErrEmployeeNotFound
		}

		query, args, err := psql().
			Insert(assignmentTableName).
			SetMap(utils.StructToMap(assignment)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert assignment query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}

		if err := attachAccessories(ctx, tx, assignmentAccessoryLink, assignment.ID, category.ID, in.Accessories); err != nil {
			return err
		}

		return recomputeHolder(ctx, tx, itemID, today)
	})
	if err != nil {
		return nil, err
	}

	return assignment, nil
}

// End closes every active assignment of the item on endDate, today when
// nil. With nothing active it succeeds without touching the item.
func (r *LedgerRepository) End(ctx context.Context, slug, itemID string, endDate *time.Time) error {
	if !utils.IsValidSlug(slug) {
		return types.ErrInvalidSlug
	}

	today := r.clock.Today()
	if endDate == nil {
		endDate = &today
	}

	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		category, err := r.category(ctx, tx, slug)
		if err != nil {
			return err
		}

		if err := lockItem(ctx, tx, category.ID, itemID); err != nil {
			return err
		}

		query, args, err := psql().
			Update(assignmentTableName+" a").
			Set("end_date", *endDate).
			Where(sq.Eq{"a.item_id": itemID}).
			Where(sq.Expr(activeOn("a"), today)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate end assignment query: %w", err)
		}

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to end assignments: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		return recomputeHolder(ctx, tx, itemID, today)
	})
}

// History pages through the item's assignments, most recent first.
func (r *LedgerRepository) History(ctx context.Context, slug, itemID string, pq types.PageQuery) ([]types.AssignmentView, types.PageMeta, error) {
	category, err := r.category(ctx, r.pool, slug)
	if err != nil {
		return nil, types.PageMeta{}, err
	}
	if err := itemExists(ctx, r.pool, category.ID, itemID); err != nil {
		return nil, types.PageMeta{}, err
	}
	return itemHistory(ctx, r.pool, itemID, pq)
}

func (r *LedgerRepository) category(ctx context.Context, q querier, slug string) (*types.Category, error) {
	if !utils.IsValidSlug(slug) {
		return nil, types.ErrInvalidSlug
	}
	return categoryBySlug(ctx, q, slug, false)
}

// lockItem takes the row lock that serialises ledger writes on one item.
func lockItem(ctx context.Context, tx pgx.Tx, categoryID, itemID string) error {
	query, args, err := psql().
		Select("id").
		From(itemTableName).
		Where(sq.Eq{"id": itemID, "category_id": categoryID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate item lock query: %w", err)
	}

	var id string
	if err := pgxscan.Get(ctx, tx, &id, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return types.ErrItemNotFound
		}
		return fmt.Errorf("failed to lock item: %w", err)
	}

	return nil
}

func itemExists(ctx context.Context, q querier, categoryID, itemID string) error {
	query, args, err := psql().
		Select("id").
		From(itemTableName).
		Where(sq.Eq{"id": itemID, "category_id": categoryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate item query: %w", err)
	}

	var id string
	if err := pgxscan.Get(ctx, q, &id, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return types.ErrItemNotFound
		}
		return fmt.Errorf("failed to fetch item: %w", err)
	}

	return nil
}

func hasActive(ctx context.Context, q querier, itemID string, today time.Time) (bool, error) {
	query, args, err := psql().
		Select("1").
		From(assignmentTableName+" a").
		Where(sq.Eq{"a.item_id": itemID}).
		Where(sq.Expr(activeOn("a"), today)).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate active assignment query: %w", err)
	}

	var active bool
	if err := q.QueryRow(ctx, query, args...).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to check active assignment: %w", err)
	}

	return active, nil
}

func holdsActive(ctx context.Context, q querier, itemID, employeeID string, today time.Time) (bool, error) {
	query, args, err := psql().
		Select("1").
		From(assignmentTableName+" a").
		Where(sq.Eq{"a.item_id": itemID, "a.employee_id": employeeID}).
		Where(sq.Expr(activeOn("a"), today)).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate visibility query: %w", err)
	}

	var held bool
	if err := q.QueryRow(ctx, query, args...).Scan(&held); err != nil {
		return false, fmt.Errorf("failed to check item visibility: %w", err)
	}

	return held, nil
}

// recomputeHolder derives items.current_holder from the ledger. It is the
// only writer of that column.
func recomputeHolder(ctx context.Context, tx pgx.Tx, itemID string, today time.Time) error {
	holder, holderArgs, err := psql().
		Select("a.employee_id").
		From(assignmentTableName+" a").
		Where(sq.Eq{"a.item_id": itemID}).
		Where(sq.Expr(activeOn("a"), today)).
		OrderBy(historyOrder...).
		Limit(1).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate holder query: %w", err)
	}

	query, args, err := psql().
		Update(itemTableName).
		Set("current_holder", sq.Expr("("+holder+")", holderArgs...)).
		Where(sq.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate holder update query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update current holder: %w", err)
	}

	return nil
}

func itemHistory(ctx context.Context, q querier, itemID string, pq types.PageQuery) ([]types.AssignmentView, types.PageMeta, error) {
	pq = pq.Normalize()
	meta := types.PageMeta{Page: pq.Page, PageSize: pq.PageSize}

	countQuery, countArgs, err := psql().
		Select("COUNT(*)").
		From(assignmentTableName).
		Where(sq.Eq{"item_id": itemID}).
		ToSql()
	if err != nil {
		return nil, meta, fmt.Errorf("failed to generate history count query: %w", err)
	}
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&meta.Total); err != nil {
		return nil, meta, fmt.Errorf("failed to count history: %w", err)
	}

	columns := append(
		utils.PrefixSliceOfStrings("a", assignmentColumns),
		"e.name AS employee_name",
		"e.email AS employee_email",
	)

	query, args, err := psql().
		Select(columns...).
		From(assignmentTableName + " a").
		LeftJoin(employeeTableName + " e ON e.employee_id = a.employee_id").
		Where(sq.Eq{"a.item_id": itemID}).
		OrderBy(historyOrder...).
		Limit(uint64(pq.PageSize)).
		Offset(pq.Offset()).
		ToSql()
	if err != nil {
		return nil, meta, fmt.Errorf("failed to generate history query: %w", err)
	}

	var rows = make([]types.AssignmentView, 0)
	if err := pgxscan.Select(ctx, q, &rows, query, args...); err != nil {
		return nil, meta, fmt.Errorf("failed to fetch history: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	accessories, err := accessoryLines(ctx, q, assignmentAccessoryLink, ids)
	if err != nil {
		return nil, meta, err
	}

	for i := range rows {
		rows[i].Accessories = accessories[rows[i].ID]
		if rows[i].Accessories == nil {
			rows[i].Accessories = make([]types.AccessoryLine, 0)
		}
	}

	return rows, meta, nil
}
