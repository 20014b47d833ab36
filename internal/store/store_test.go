package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"assettrack/internal/db"
	"assettrack/internal/utils"
	"assettrack/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testDatabaseURLEnv = "ASSETTRACK_TEST_DATABASE_URL"

// fixedToday is the date every repository under test believes it is.
var fixedToday = time.Date(2024, time.July, 1, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	pool        *pgxpool.Pool
	categories  *CategoryRepository
	items       *ItemRepository
	ledger      *LedgerRepository
	accessories *AccessoryRepository
	licenses    *LicenseRepository
	employees   *EmployeeRepository
	requests    *RequestRepository
}

// newTestEnv connects to the database named by ASSETTRACK_TEST_DATABASE_URL
// and evolves a fresh schema that is dropped when the test ends.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseURLEnv)
	}

	ctx := context.Background()
	schema := "test_" + strings.ToLower(utils.NanoIDSize(12))

	pool, err := db.Connect(ctx, &types.Config{
		DatabaseURL:      url,
		DatabaseSchema:   schema,
		DatabaseMaxConns: 8,
	})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(testWriter{t})

	require.NoError(t, EvolveSchema(ctx, pool, schema, logger))

	t.Cleanup(func() {
		_, err := pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
		if err != nil {
			t.Logf("failed to drop schema %s: %v", schema, err)
		}
		pool.Close()
	})

	clock := Clock(func() time.Time { return fixedToday })

	return &testEnv{
		pool:        pool,
		categories:  NewCategoryRepository(pool).WithClock(clock),
		items:       NewItemRepository(pool).WithClock(clock),
		ledger:      NewLedgerRepository(pool).WithClock(clock),
		accessories: NewAccessoryRepository(pool),
		licenses:    NewLicenseRepository(pool),
		employees:   NewEmployeeRepository(pool),
		requests:    NewRequestRepository(pool),
	}
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func (e *testEnv) category(t *testing.T, slug string) *types.Category {
	t.Helper()
	category, err := e.categories.CreateCategory(context.Background(), "", slug)
	require.NoError(t, err)
	return category
}

func (e *testEnv) item(t *testing.T, slug, serial string) *types.Item {
	t.Helper()
	item, err := e.items.CreateItem(context.Background(), slug, types.ItemInput{SerialNumber: serial, Brand: "Acme"})
	require.NoError(t, err)
	return item
}

func (e *testEnv) employee(t *testing.T, employeeID, email string) {
	t.Helper()
	_, err := e.employees.EnsureEmployee(context.Background(), types.EmployeeProfile{
		EmployeeID: employeeID,
		Name:       "Employee " + employeeID,
		Email:      email,
	})
	require.NoError(t, err)
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func (e *testEnv) holder(t *testing.T, itemID string) *string {
	t.Helper()
	var holder *string
	require.NoError(t, e.pool.QueryRow(context.Background(), "SELECT current_holder FROM items WHERE id = $1", itemID).Scan(&holder))
	return holder
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := utils.ParseDate(s)
	require.NoError(t, err)
	require.NotNil(t, d)
	return *d
}

func datePtr(t *testing.T, s string) *time.Time {
	d := date(t, s)
	return &d
}
