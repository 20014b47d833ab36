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

const accessoryTypeTableName = "accessory_types"

var accessoryTypeColumns = utils.StructTagValues(types.AccessoryType{})

// accessoryLink names a table linking an owner row to accessory types.
type accessoryLink struct {
	table string
	owner string
}

var (
	assignmentAccessoryLink  = accessoryLink{table: "assignment_accessories", owner: "assignment_id"}
	requestAccessoryLink     = accessoryLink{table: "request_accessories", owner: "request_id"}
	requestItemAccessoryLink = accessoryLink{table: "request_item_accessories", owner: "request_item_id"}
)

type AccessoryRepository struct {
	pool *pgxpool.Pool
}

func NewAccessoryRepository(pool *pgxpool.Pool) *AccessoryRepository {
	return &AccessoryRepository{pool: pool}
}

func (r *AccessoryRepository) AccessoryTypes(ctx context.Context, slug string) ([]*types.AccessoryType, error) {
	category, err := r.category(ctx, slug)
	if err != nil {
		return nil, err
	}

	query, args, err := psql().
		Select(accessoryTypeColumns...).
		From(accessoryTypeTableName).
		Where(sq.Eq{"category_id": category.ID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate accessory types query: %w", err)
	}

	var accessoryTypes = make([]*types.AccessoryType, 0)
	err = pgxscan.Select(ctx, r.pool, &accessoryTypes, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accessory types: %w", err)
	}

	return accessoryTypes, nil
}

func (r *AccessoryRepository) CreateAccessoryType(ctx context.Context, slug, name string) (*types.AccessoryType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.Invalid("name required")
	}

	category, err := r.category(ctx, slug)
	if err != nil {
		return nil, err
	}

	accessoryType := &types.AccessoryType{
		ID:         utils.NanoID(),
		CategoryID: category.ID,
		Name:       name,
		CreatedAt:  time.Now(),
	}

	query, args, err := psql().
		Insert(accessoryTypeTableName).
		SetMap(utils.StructToMap(accessoryType)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate insert query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrAccessoryTypeTaken
		}
		return nil, fmt.Errorf("failed to insert accessory type: %w", err)
	}

	return accessoryType, nil
}

// DeleteAccessoryType removes a type from a category's catalog along with
// every link that references it.
func (r *AccessoryRepository) DeleteAccessoryType(ctx context.Context, slug, id string) error {
	category, err := r.category(ctx, slug)
	if err != nil {
		return err
	}

	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, link := range []accessoryLink{assignmentAccessoryLink, requestAccessoryLink, requestItemAccessoryLink} {
			query, args, err := psql().Delete(link.table).Where(sq.Eq{"accessory_type_id": id}).ToSql()
			if err != nil {
				return fmt.Errorf("failed to generate delete query for %s: %w", link.table, err)
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to delete from %s: %w", link.table, err)
			}
		}

		query, args, err := psql().
			Delete(accessoryTypeTableName).
			Where(sq.Eq{"id": id, "category_id": category.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate delete query: %w", err)
		}

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete accessory type: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return types.ErrAccessoryTypeNotFound
		}

		return nil
	})
}

func (r *AccessoryRepository) category(ctx context.Context, slug string) (*types.Category, error) {
	if !utils.IsValidSlug(slug) {
		return nil, types.ErrInvalidSlug
	}
	return categoryBySlug(ctx, r.pool, slug, false)
}

// resolveAccessoryType maps an input to a type id within the category. An
// explicit type id must belong to the category. A name is matched exactly and
// inserted when missing. ok is false when the input names nothing.
func resolveAccessoryType(ctx context.Context, q querier, categoryID string, in types.AccessoryInput) (string, bool, error) {
	if in.TypeID != "" {
		query, args, err := psql().
			Select("id").
			From(accessoryTypeTableName).
			Where(sq.Eq{"id": in.TypeID, "category_id": categoryID}).
			ToSql()
		if err != nil {
			return "", false, fmt.Errorf("failed to generate accessory type query: %w", err)
		}

		var id string
		err = q.QueryRow(ctx, query, args...).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", false, types.ErrAccessoryTypeNotFound
			}
			return "", false, fmt.Errorf("failed to fetch accessory type: %w", err)
		}
		return id, true, nil
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", false, nil
	}

	insert := psql().
		Insert(accessoryTypeTableName).
		Columns("id", "category_id", "name", "created_at").
		Values(utils.NanoID(), categoryID, name, time.Now()).
		Suffix("ON CONFLICT (category_id, name) DO NOTHING RETURNING id")
	lookup := psql().
		Select("id").
		From(accessoryTypeTableName).
		Where(sq.Eq{"category_id": categoryID, "name": name})

	id, err := insertOrSelectID(ctx, q, insert, lookup)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve accessory type %q: %w", name, err)
	}

	return id, true, nil
}

// insertOrSelectID runs an INSERT ... ON CONFLICT DO NOTHING RETURNING id and
// falls back to the lookup when the row already existed.
func insertOrSelectID(ctx context.Context, q querier, insert sq.InsertBuilder, lookup sq.SelectBuilder) (string, error) {
	query, args, err := insert.ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to generate insert query: %w", err)
	}

	var id string
	err = q.QueryRow(ctx, query, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	query, args, err = lookup.ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to generate lookup query: %w", err)
	}

	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", err
	}

	return id, nil
}

// attachAccessories links each resolvable input to the owner row. Linking the
// same type twice keeps the last quantity.
func attachAccessories(ctx context.Context, q querier, link accessoryLink, ownerID, categoryID string, inputs []types.AccessoryInput) error {
	for _, in := range inputs {
		typeID, ok, err := resolveAccessoryType(ctx, q, categoryID, in)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		query, args, err := psql().
			Insert(link.table).
			Columns(link.owner, "accessory_type_id", "quantity").
			Values(ownerID, typeID, utils.Quantity(in.Quantity)).
			Suffix(fmt.Sprintf("ON CONFLICT (%s, accessory_type_id) DO UPDATE SET quantity = EXCLUDED.quantity", link.owner)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate accessory link query: %w", err)
		}

		if _, err := q.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to link accessory: %w", err)
		}
	}

	return nil
}

// accessoryLines loads the accessories linked to each owner, keyed by owner id.
func accessoryLines(ctx context.Context, q querier, link accessoryLink, ownerIDs []string) (map[string][]types.AccessoryLine, error) {
	out := make(map[string][]types.AccessoryLine, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}

	query, args, err := psql().
		Select("l."+link.owner+" AS owner_id", "t.name", "l.quantity").
		From(link.table + " l").
		Join(accessoryTypeTableName + " t ON t.id = l.accessory_type_id").
		Where(sq.Eq{"l." + link.owner: ownerIDs}).
		OrderBy("t.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate accessory lines query: %w", err)
	}

	var lines []types.AccessoryLine
	if err := pgxscan.Select(ctx, q, &lines, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch accessory lines: %w", err)
	}

	for _, line := range lines {
		out[line.OwnerID] = append(out[line.OwnerID], line)
	}

	return out, nil
}
