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

const employeeTableName = "employees"

var employeeColumns = utils.StructTagValues(types.Employee{})

type EmployeeRepository struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepository(pool *pgxpool.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) ByEmployeeID(ctx context.Context, employeeID string) (*types.Employee, error) {
	return r.employee(ctx, sq.Eq{"employee_id": employeeID})
}

// ByEmail finds the employee record of an authenticated caller. Matching is
// case-insensitive.
func (r *EmployeeRepository) ByEmail(ctx context.Context, email string) (*types.Employee, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, types.ErrEmployeeNotFound
	}
	return r.employee(ctx, sq.Expr("lower(email) = lower(?)", email))
}

func (r *EmployeeRepository) employee(ctx context.Context, where sq.Sqlizer) (*types.Employee, error) {
	query, args, err := psql().
		Select(employeeColumns...).
		From(employeeTableName).
		Where(where).
		OrderBy("created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate employee query: %w", err)
	}

	var employee types.Employee
	err = pgxscan.Get(ctx, r.pool, &employee, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to fetch employee: %w", err)
	}

	return &employee, nil
}

// EnsureEmployee creates the employee from the profile unless one with the
// same employee_id already exists. Existing records are left untouched.
func (r *EmployeeRepository) EnsureEmployee(ctx context.Context, profile types.EmployeeProfile) (bool, error) {
	return ensureEmployee(ctx, r.pool, profile)
}

// HeldItems pages through the items whose holder is the employee, across
// every category, filtered by q over category name, brand, serial and
// condition.
func (r *EmployeeRepository) HeldItems(ctx context.Context, employeeID string, pq types.PageQuery) (*types.Page[*types.HeldItem], error) {
	pq = pq.Normalize()

	var where sq.Sqlizer = sq.Eq{"i.current_holder": employeeID}
	if q := strings.TrimSpace(pq.Q); q != "" {
		w := "%" + q + "%"
		where = sq.And{where, sq.Or{
			sq.ILike{"c.name": w},
			sq.ILike{"i.brand": w},
			sq.ILike{"i.serial_number": w},
			sq.ILike{"i.condition": w},
		}}
	}

	base := psql().
		Select().
		From(itemTableName + " i").
		Join(categoryTableName + " c ON c.id = i.category_id").
		Where(where)

	countQuery, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate held items count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count held items: %w", err)
	}

	query, args, err := base.
		Columns(
			"i.id", "i.brand", "i.serial_number", "i.condition", "i.start_date",
			"c.slug AS category_slug", "c.name AS category_name",
		).
		OrderBy("c.name ASC", "i.serial_number ASC").
		Limit(uint64(pq.PageSize)).
		Offset(pq.Offset()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate held items query: %w", err)
	}

	var items []*types.HeldItem
	if err := pgxscan.Select(ctx, r.pool, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch held items: %w", err)
	}

	return types.NewPage(items, total, pq), nil
}

// Profile is the employee plus a page of the items they currently hold.
func (r *EmployeeRepository) Profile(ctx context.Context, employee *types.Employee, pq types.PageQuery) (*types.Profile, error) {
	items, err := r.HeldItems(ctx, employee.EmployeeID, pq)
	if err != nil {
		return nil, err
	}
	return &types.Profile{User: employee, Items: items}, nil
}

func ensureEmployee(ctx context.Context, q querier, profile types.EmployeeProfile) (bool, error) {
	employeeID := strings.TrimSpace(profile.EmployeeID)
	if employeeID == "" {
		return false, types.Invalid("employee_id required")
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = employeeID
	}

	now := time.Now()
	query, args, err := psql().
		Insert(employeeTableName).
		SetMap(map[string]any{
			"id":           utils.NanoID(),
			"employee_id":  employeeID,
			"name":         name,
			"email":        nullable(strings.TrimSpace(profile.Email)),
			"department":   nullable(strings.TrimSpace(profile.Departments)),
			"phone_number": nullable(strings.TrimSpace(profile.PhoneNumber)),
			"job_title":    nullable(strings.TrimSpace(profile.JobTitle)),
			"table_number": nullable(strings.TrimSpace(profile.TableNumber)),
			"created_at":   now,
			"updated_at":   now,
		}).
		Suffix("ON CONFLICT (employee_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate employee insert query: %w", err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to ensure employee %s: %w", employeeID, err)
	}

	return tag.RowsAffected() == 1, nil
}

func employeeExists(ctx context.Context, q querier, employeeID string) (bool, error) {
	query, args, err := psql().
		Select("1").
		From(employeeTableName).
		Where(sq.Eq{"employee_id": employeeID}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate employee lookup query: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up employee: %w", err)
	}

	return exists, nil
}
