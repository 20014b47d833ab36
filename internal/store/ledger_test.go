package store

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"assettrack/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerTransferScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.category(t, "tablet")
	item := env.item(t, "tablet", "SN-001")
	env.employee(t, "E100", "e100@example.com")
	env.employee(t, "E200", "e200@example.com")

	_, err := env.ledger.Begin(ctx, "tablet", item.ID, types.BeginAssignment{
		EmployeeID: "E100",
		StartDate:  date(t, "2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "E100", *env.holder(t, item.ID))

	_, err = env.ledger.Begin(ctx, "tablet", item.ID, types.BeginAssignment{
		EmployeeID: "E200",
		StartDate:  date(t, "2024-03-01"),
	})
	require.ErrorIs(t, err, types.ErrActiveAssignment)

	require.NoError(t, env.ledger.End(ctx, "tablet", item.ID, datePtr(t, "2024-06-01")))
	assert.Nil(t, env.holder(t, item.ID))

	_, err = env.ledger.Begin(ctx, "tablet", item.ID, types.BeginAssignment{
		EmployeeID: "E200",
		StartDate:  date(t, "2024-06-02"),
	})
	require.NoError(t, err)

	holder := env.holder(t, item.ID)
	require.NotNil(t, holder)
	assert.Equal(t, "E200", *holder)

	active, err := env.ledger.ActiveHolder(ctx, "tablet", item.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "E200", *active.EmployeeID)

	history, meta, err := env.ledger.History(ctx, "tablet", item.ID, types.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Total)
	require.Len(t, history, 2)
	assert.Equal(t, "E200", *history[0].EmployeeID)
	assert.Equal(t, "E100", *history[1].EmployeeID)
	assert.Equal(t, "2024-06-01", history[1].EndDate.Format("2006-01-02"))
	require.NotNil(t, history[0].EmployeeName)
	assert.Equal(t, "Employee E200", *history[0].EmployeeName)
}

func TestBeginConflictWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.category(t, "laptop")
	item := env.item(t, "laptop", "L-1")
	env.employee(t, "E1", "")
	env.employee(t, "E2", "")

	_, err := env.ledger.Begin(ctx, "laptop", item.ID, types.BeginAssignment{EmployeeID: "E1", StartDate: date(t, "2024-02-01")})
	require.NoError(t, err)

	_, err = env.ledger.Begin(ctx, "laptop", item.ID, types.BeginAssignment{
		EmployeeID:  "E2",
		StartDate:   date(t, "2024-03-01"),
		Accessories: []types.AccessoryInput{{Name: "Dock"}},
	})
	require.ErrorIs(t, err, types.ErrActiveAssignment)

	assert.Equal(t, 1, env.count(t, "SELECT COUNT(*) FROM assignments WHERE item_id = $1", item.ID))
	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM accessory_types"))
	assert.Equal(t, "E1", *env.holder(t, item.ID))
}

func TestBeginValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.category(t, "laptop")
	item := env.item(t, "laptop", "L-1")
	env.employee(t, "E2", "")

	endBefore := date(t, "2024-01-31")

	tests := []struct {
		name   string
		slug   string
		itemID string
		in     types.BeginAssignment
		want   error
	}{
		{"unknown employee", "laptop", item.ID, types.BeginAssignment{EmployeeID: "nobody", StartDate: date(t, "2024-02-01")}, types.ErrEmployeeNotFound},
		{"missing start date", "laptop", item.ID, types.BeginAssignment{EmployeeID: "E1"}, types.ErrValidation},
		{"end before start", "laptop", item.ID, types.BeginAssignment{EmployeeID: "E2", StartDate: date(t, "2024-02-01"), EndDate: &endBefore}, types.ErrValidation},
		{"missing item", "laptop", "missing", types.BeginAssignment{EmployeeID: "E1", StartDate: date(t, "2024-02-01")}, types.ErrItemNotFound},
		{"missing category", "desk", item.ID, types.BeginAssignment{EmployeeID: "E1", StartDate: date(t, "2024-02-01")}, types.ErrCategoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.Begin(ctx, tt.slug, tt.itemID, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM assignments"))
}

func TestEndWithoutActiveIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.category(t, "laptop")
	item := env.item(t, "laptop", "L-1")
	env.employee(t, "E1", "")

	// a stale holder must survive a no-op end untouched
	_, err := env.pool.Exec(ctx, "UPDATE items SET current_holder = 'E1' WHERE id = $1", item.ID)
	require.NoError(t, err)

	require.NoError(t, env.ledger.End(ctx, "laptop", item.ID, nil))
	assert.Equal(t, "E1", *env.holder(t, item.ID))
	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM assignments"))
}

func TestEndClosesEveryActiveRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	category := env.category(t, "laptop")
	item := env.item(t, "laptop", "L-1")

	// overlapping rows left behind by an older version
	for i, emp := range []string{"E1", "E2"} {
		_, err := env.pool.Exec(ctx,
			"INSERT INTO assignments (id, category_id, item_id, employee_id, start_date) VALUES ($1, $2, $3, $4, $5)",
			fmt.Sprintf("legacy-%d", i), category.ID, item.ID, emp, date(t, "2024-01-01"))
		require.NoError(t, err)
	}

	require.NoError(t, env.ledger.End(ctx, "laptop", item.ID, nil))

	assert.Equal(t, 0, env.count(t,
		"SELECT COUNT(*) FROM assignments WHERE item_id = $1 AND (end_date IS NULL OR end_date > $2)", item.ID, fixedToday))
	assert.Equal(t, 2, env.count(t,
		"SELECT COUNT(*) FROM assignments WHERE item_id = $1 AND end_date = $2", item.ID, date(t, "2024-07-01")))
	assert.Nil(t, env.holder(t, item.ID))
}

func TestAtMostOneActiveAssignment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.category(t, "phone")
	item := env.item(t, "phone", "P-1")
	employees := []string{"E1", "E2", "E3"}
	for _, emp := range employees {
		env.employee(t, emp, "")
	}

	rng := rand.New(rand.NewSource(42))
	day := date(t, "2023-01-01")

	for step := 0; step < 40; step++ {
		day = day.AddDate(0, 0, 3)

		if rng.Intn(2) == 0 {
			_, err := env.ledger.Begin(ctx, "phone", item.ID, types.BeginAssignment{
				EmployeeID: employees[rng.Intn(len(employees))],
				StartDate:  day,
			})
			if err != nil {
				require.ErrorIs(t, err, types.ErrActiveAssignment)
			}
		} else {
			end := day
			require.NoError(t, env.ledger.End(ctx, "phone", item.ID, &end))
		}

		active := env.count(t,
			"SELECT COUNT(*) FROM assignments WHERE item_id = $1 AND (end_date IS NULL OR end_date > $2)", item.ID, fixedToday)
		require.LessOrEqual(t, active, 1, "step %d", step)

		current, err := env.ledger.ActiveHolder(ctx, "phone", item.ID)
		require.NoError(t, err)
		holder := env.holder(t, item.ID)
		if current == nil {
			assert.Nil(t, holder, "step %d", step)
		} else {
			require.NotNil(t, holder, "step %d", step)
			assert.Equal(t, *current.EmployeeID, *holder, "step %d", step)
		}
	}
}

func TestBeginAttachesAccessories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.category(t, "laptop")
	item := env.item(t, "laptop", "L-1")
	env.employee(t, "E1", "")

	_, err := env.ledger.Begin(ctx, "laptop", item.ID, types.BeginAssignment{
		EmployeeID: "E1",
		StartDate:  date(t, "2024-01-01"),
		Accessories: []types.AccessoryInput{
			{Name: "Bag", Quantity: "2"},
			{Name: "Mouse", Quantity: -4},
			{Name: "Bag", Quantity: 3},
			{},
		},
	})
	require.NoError(t, err)

	history, _, err := env.ledger.History(ctx, "laptop", item.ID, types.PageQuery{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, []types.AccessoryLine{
		{OwnerID: history[0].ID, Name: "Bag", Quantity: 3},
		{OwnerID: history[0].ID, Name: "Mouse", Quantity: 1},
	}, history[0].Accessories)
}

func TestItemVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.category(t, "laptop")
	item := env.item(t, "laptop", "L-1")
	env.employee(t, "E1", "")
	env.employee(t, "E2", "")

	_, err := env.ledger.Begin(ctx, "laptop", item.ID, types.BeginAssignment{EmployeeID: "E1", StartDate: date(t, "2024-01-01")})
	require.NoError(t, err)

	detail, err := env.items.ItemDetail(ctx, "laptop", item.ID, types.Viewer{EmployeeID: "E1"}, types.PageQuery{})
	require.NoError(t, err)
	assert.Len(t, detail.History, 1)

	_, err = env.items.ItemDetail(ctx, "laptop", item.ID, types.Viewer{EmployeeID: "E2"}, types.PageQuery{})
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = env.items.ItemDetail(ctx, "laptop", item.ID, types.Viewer{}, types.PageQuery{})
	assert.ErrorIs(t, err, types.ErrForbidden)

	detail, err = env.items.ItemDetail(ctx, "laptop", item.ID, types.Viewer{Admin: true}, types.PageQuery{})
	require.NoError(t, err)
	require.NotNil(t, detail.Item.CurrentHolder)
	assert.Equal(t, "E1", *detail.Item.CurrentHolder)

	ok, err := holdsActive(ctx, env.pool, item.ID, "E1", fixedToday)
	require.NoError(t, err)
	assert.True(t, ok)
}
