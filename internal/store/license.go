package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"assettrack/internal/utils"
	"assettrack/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	licenseTypeTableName     = "license_types"
	employeeLicenseTableName = "employee_licenses"
)

var licenseTypeColumns = utils.StructTagValues(types.LicenseType{})

type licenseLink struct {
	table string
	owner string
}

var (
	employeeLicenseLink    = licenseLink{table: employeeLicenseTableName, owner: "employee_id"}
	requestLicenseLink     = licenseLink{table: "request_licenses", owner: "request_id"}
	requestItemLicenseLink = licenseLink{table: "request_item_licenses", owner: "request_item_id"}
)

type LicenseRepository struct {
	pool *pgxpool.Pool
}

func NewLicenseRepository(pool *pgxpool.Pool) *LicenseRepository {
	return &LicenseRepository{pool: pool}
}

func (r *LicenseRepository) LicenseTypes(ctx context.Context) ([]*types.LicenseType, error) {
	query, args, err := psql().
		Select(licenseTypeColumns...).
		From(licenseTypeTableName).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate license types query: %w", err)
	}

	var licenseTypes = make([]*types.LicenseType, 0)
	err = pgxscan.Select(ctx, r.pool, &licenseTypes, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch license types: %w", err)
	}

	return licenseTypes, nil
}

func (r *LicenseRepository) CreateLicenseType(ctx context.Context, name string) (*types.LicenseType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.Invalid("name required")
	}

	licenseType := &types.LicenseType{
		ID:        utils.NanoID(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	query, args, err := psql().
		Insert(licenseTypeTableName).
		SetMap(utils.StructToMap(licenseType)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate insert query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrLicenseTypeTaken
		}
		return nil, fmt.Errorf("failed to insert license type: %w", err)
	}

	return licenseType, nil
}

// Grants lists the license types granted to an employee.
func (r *LicenseRepository) Grants(ctx context.Context, employeeID string) ([]*types.LicenseType, error) {
	query, args, err := psql().
		Select(utils.PrefixSliceOfStrings("lt", licenseTypeColumns)...).
		From(employeeLicenseTableName + " el").
		Join(licenseTypeTableName + " lt ON lt.id = el.license_type_id").
		Where(sq.Eq{"el.employee_id": employeeID}).
		OrderBy("lt.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate license grants query: %w", err)
	}

	var licenseTypes = make([]*types.LicenseType, 0)
	err = pgxscan.Select(ctx, r.pool, &licenseTypes, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch license grants: %w", err)
	}

	return licenseTypes, nil
}

// Grant gives an employee a license, resolving or creating the type by name
// when no id is given. Granting twice is a no-op.
func (r *LicenseRepository) Grant(ctx context.Context, employeeID string, in types.LicenseInput) error {
	if strings.TrimSpace(in.TypeID) == "" && strings.TrimSpace(in.Name) == "" {
		return types.Invalid("type_id or name required")
	}

	return attachLicenses(ctx, r.pool, employeeLicenseLink, employeeID, []types.LicenseInput{in})
}

func (r *LicenseRepository) Revoke(ctx context.Context, employeeID, licenseTypeID string) error {
	query, args, err := psql().
		Delete(employeeLicenseTableName).
		Where(sq.Eq{"employee_id": employeeID, "license_type_id": licenseTypeID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to revoke license")
}

func resolveLicenseType(ctx context.Context, q querier, in types.LicenseInput) (string, bool, error) {
	if typeID := strings.TrimSpace(in.TypeID); typeID != "" {
		query, args, err := psql().
			Select("id").
			From(licenseTypeTableName).
			Where(sq.Eq{"id": typeID}).
			ToSql()
		if err != nil {
			return "", false, fmt.Errorf("failed to generate license type query: %w", err)
		}

		var id string
		err = q.QueryRow(ctx, query, args...).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", false, types.ErrLicenseTypeNotFound
			}
			return "", false, fmt.Errorf("failed to fetch license type: %w", err)
		}
		return id, true, nil
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", false, nil
	}

	insert := psql().
		Insert(licenseTypeTableName).
		Columns("id", "name", "created_at").
		Values(utils.NanoID(), name, time.Now()).
		Suffix("ON CONFLICT (name) DO NOTHING RETURNING id")
	lookup := psql().
		Select("id").
		From(licenseTypeTableName).
		Where(sq.Eq{"name": name})

	id, err := insertOrSelectID(ctx, q, insert, lookup)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve license type %q: %w", name, err)
	}

	return id, true, nil
}

func attachLicenses(ctx context.Context, q querier, link licenseLink, ownerID string, inputs []types.LicenseInput) error {
	for _, in := range inputs {
		typeID, ok, err := resolveLicenseType(ctx, q, in)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		query, args, err := psql().
			Insert(link.table).
			Columns(link.owner, "license_type_id").
			Values(ownerID, typeID).
			Suffix("ON CONFLICT DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate license link query: %w", err)
		}

		if _, err := q.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to link license: %w", err)
		}
	}

	return nil
}

func licenseLines(ctx context.Context, q querier, link licenseLink, ownerIDs []string) (map[string][]types.LicenseLine, error) {
	out := make(map[string][]types.LicenseLine, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}

	query, args, err := psql().
		Select("l."+link.owner+" AS owner_id", "lt.name").
		From(link.table + " l").
		Join(licenseTypeTableName + " lt ON lt.id = l.license_type_id").
		Where(sq.Eq{"l." + link.owner: ownerIDs}).
		OrderBy("lt.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate license lines query: %w", err)
	}

	var lines []types.LicenseLine
	if err := pgxscan.Select(ctx, q, &lines, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch license lines: %w", err)
	}

	for _, line := range lines {
		out[line.OwnerID] = append(out[line.OwnerID], line)
	}

	return out, nil
}
