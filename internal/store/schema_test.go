package store

import (
	"context"
	"testing"

	"assettrack/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvolveSchemaIsRepeatable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var schema string
	require.NoError(t, env.pool.QueryRow(ctx, "SELECT current_schema()").Scan(&schema))

	env.category(t, "laptop")
	env.item(t, "laptop", "SN-1")

	logger := logrus.New()
	logger.SetOutput(testWriter{t})
	require.NoError(t, EvolveSchema(ctx, env.pool, schema, logger))
	require.NoError(t, EvolveSchema(ctx, env.pool, schema, logger))

	assert.Equal(t, 1, env.count(t, "SELECT COUNT(*) FROM items"))

	for _, col := range addedColumns {
		exists, err := columnExists(ctx, env.pool, schema, col.table, col.column)
		require.NoError(t, err)
		assert.True(t, exists, "%s.%s", col.table, col.column)
	}
}

func TestEvolveSchemaRejectsBadSchemaName(t *testing.T) {
	err := EvolveSchema(context.Background(), nil, "bad-name; DROP", logrus.New())
	require.Error(t, err)
}

func TestEvolveSchemaAddsMissingColumns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var schema string
	require.NoError(t, env.pool.QueryRow(ctx, "SELECT current_schema()").Scan(&schema))

	env.category(t, "laptop")
	item := env.item(t, "laptop", "SN-1")
	env.employee(t, "E1", "e1@example.com")
	_, err := env.ledger.Begin(ctx, "laptop", item.ID, types.BeginAssignment{
		EmployeeID: "E1",
		StartDate:  date(t, "2024-06-01"),
	})
	require.NoError(t, err)

	dropped := []struct {
		table  string
		column string
	}{
		{"items", "current_holder"},
		{"assignments", "employee_id"},
	}
	for _, col := range dropped {
		_, err := env.pool.Exec(ctx, "ALTER TABLE "+col.table+" DROP COLUMN "+col.column+" CASCADE")
		require.NoError(t, err)
	}

	logger := logrus.New()
	logger.SetOutput(testWriter{t})
	require.NoError(t, EvolveSchema(ctx, env.pool, schema, logger))

	for _, col := range dropped {
		t.Run(col.table+"."+col.column, func(t *testing.T) {
			exists, err := columnExists(ctx, env.pool, schema, col.table, col.column)
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}

	assert.Equal(t, 1, env.count(t, "SELECT COUNT(*) FROM items WHERE id = $1 AND serial_number = 'SN-1'", item.ID))
	assert.Equal(t, 1, env.count(t, "SELECT COUNT(*) FROM assignments WHERE item_id = $1 AND start_date = '2024-06-01'", item.ID))
	assert.Equal(t, 1, env.count(t, "SELECT COUNT(*) FROM pg_indexes WHERE schemaname = $1 AND indexname = 'items_category_holder_idx'", schema))
	assert.Nil(t, env.holder(t, item.ID))
}
