package store

import (
	"context"
	"fmt"

	"assettrack/internal/db"
	"assettrack/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// baseTables is the first-version schema. Later additions live in
// addedColumns and addedIndexes so existing installs pick them up.
var baseTables = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id         TEXT PRIMARY KEY,
		slug       TEXT NOT NULL UNIQUE CHECK (slug ~ '^[a-z0-9_]+$'),
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id           TEXT PRIMARY KEY,
		employee_id  TEXT NOT NULL UNIQUE,
		name         TEXT NOT NULL,
		email        TEXT NULL,
		department   TEXT NULL,
		phone_number TEXT NULL,
		table_number TEXT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id                 TEXT PRIMARY KEY,
		category_id        TEXT NOT NULL REFERENCES categories (id),
		brand              TEXT NULL,
		serial_number      TEXT NOT NULL,
		start_date         DATE NULL,
		condition          TEXT NULL,
		condition_comments TEXT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (category_id, serial_number)
	)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id          TEXT PRIMARY KEY,
		category_id TEXT NOT NULL REFERENCES categories (id),
		item_id     TEXT NOT NULL REFERENCES items (id),
		start_date  DATE NOT NULL,
		end_date    DATE NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS accessory_types (
		id          TEXT PRIMARY KEY,
		category_id TEXT NOT NULL REFERENCES categories (id),
		name        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (category_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS assignment_accessories (
		assignment_id     TEXT NOT NULL REFERENCES assignments (id),
		accessory_type_id TEXT NOT NULL REFERENCES accessory_types (id),
		quantity          INT NOT NULL DEFAULT 1 CHECK (quantity >= 1),
		PRIMARY KEY (assignment_id, accessory_type_id)
	)`,
	`CREATE TABLE IF NOT EXISTS license_types (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS employee_licenses (
		employee_id     TEXT NOT NULL,
		license_type_id TEXT NOT NULL REFERENCES license_types (id) ON DELETE CASCADE,
		PRIMARY KEY (employee_id, license_type_id)
	)`,
	`CREATE TABLE IF NOT EXISTS requests (
		id            TEXT PRIMARY KEY,
		requested_by  TEXT NOT NULL,
		employee_id   TEXT NOT NULL,
		category_slug TEXT NOT NULL,
		start_date    DATE NULL,
		end_date      DATE NULL,
		notes         TEXT NULL,
		status        TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'fulfilled', 'rejected')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS request_accessories (
		request_id        TEXT NOT NULL REFERENCES requests (id) ON DELETE CASCADE,
		accessory_type_id TEXT NOT NULL REFERENCES accessory_types (id),
		quantity          INT NOT NULL DEFAULT 1 CHECK (quantity >= 1),
		PRIMARY KEY (request_id, accessory_type_id)
	)`,
	`CREATE TABLE IF NOT EXISTS request_licenses (
		request_id      TEXT NOT NULL REFERENCES requests (id) ON DELETE CASCADE,
		license_type_id TEXT NOT NULL REFERENCES license_types (id) ON DELETE CASCADE,
		PRIMARY KEY (request_id, license_type_id)
	)`,
	`CREATE TABLE IF NOT EXISTS request_items (
		id            TEXT PRIMARY KEY,
		request_id    TEXT NOT NULL REFERENCES requests (id) ON DELETE CASCADE,
		category_slug TEXT NOT NULL,
		start_date    DATE NULL,
		end_date      DATE NULL,
		position      INT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS request_item_accessories (
		request_item_id   TEXT NOT NULL REFERENCES request_items (id) ON DELETE CASCADE,
		accessory_type_id TEXT NOT NULL REFERENCES accessory_types (id),
		quantity          INT NOT NULL DEFAULT 1 CHECK (quantity >= 1),
		PRIMARY KEY (request_item_id, accessory_type_id)
	)`,
	`CREATE TABLE IF NOT EXISTS request_item_licenses (
		request_item_id TEXT NOT NULL REFERENCES request_items (id) ON DELETE CASCADE,
		license_type_id TEXT NOT NULL REFERENCES license_types (id) ON DELETE CASCADE,
		PRIMARY KEY (request_item_id, license_type_id)
	)`,
}

type addedColumn struct {
	table      string
	column     string
	definition string
}

var addedColumns = []addedColumn{
	{"items", "current_holder", "TEXT NULL"},
	{"assignments", "employee_id", "TEXT NULL"},
	{"employees", "job_title", "TEXT NULL"},
	{"employees", "has_microsoft_365", "BOOLEAN NOT NULL DEFAULT false"},
	{"employees", "has_codium_ememo", "BOOLEAN NOT NULL DEFAULT false"},
	{"employees", "has_erp_netsuite", "BOOLEAN NOT NULL DEFAULT false"},
}

var addedIndexes = []string{
	`CREATE INDEX IF NOT EXISTS items_category_holder_idx ON items (category_id, current_holder)`,
	`CREATE INDEX IF NOT EXISTS assignments_item_start_idx ON assignments (item_id, start_date DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS assignments_employee_idx ON assignments (employee_id)`,
	`CREATE INDEX IF NOT EXISTS employees_email_idx ON employees (lower(email))`,
	`CREATE INDEX IF NOT EXISTS requests_status_idx ON requests (status)`,
	`CREATE INDEX IF NOT EXISTS requests_employee_idx ON requests (employee_id)`,
	`CREATE INDEX IF NOT EXISTS request_items_request_idx ON request_items (request_id)`,
	`CREATE INDEX IF NOT EXISTS request_items_category_idx ON request_items (category_slug)`,
}

// EvolveSchema brings the database up to the current schema. It creates the
// schema and any missing tables, then adds columns and indexes introduced
// after the first version. Every step is idempotent, so it runs on every
// start and on a fresh install alike.
func EvolveSchema(ctx context.Context, pool *pgxpool.Pool, schema string, logger logrus.FieldLogger) error {
	if !utils.IsValidSlug(schema) {
		return fmt.Errorf("invalid schema name %q", schema)
	}

	return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", schema, err)
		}

		for _, stmt := range baseTables {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create base table: %w", err)
			}
		}

		for _, col := range addedColumns {
			exists, err := columnExists(ctx, tx, schema, col.table, col.column)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", col.table, col.column, col.definition)
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to add column %s.%s: %w", col.table, col.column, err)
			}
			logger.WithFields(logrus.Fields{"table": col.table, "column": col.column}).Info("added column")
		}

		for _, stmt := range addedIndexes {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	})
}

func columnExists(ctx context.Context, q querier, schema, table, column string) (bool, error) {
	query, args, err := psql().
		Select("1").
		From("information_schema.columns").
		Where("table_schema = ? AND table_name = ? AND column_name = ?", schema, table, column).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate column lookup query: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up column %s.%s: %w", table, column, err)
	}

	return exists, nil
}
