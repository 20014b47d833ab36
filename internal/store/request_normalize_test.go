package store

import (
	"testing"
	"time"

	"assettrack/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload *types.RequestPayload
		wantErr string
		check   func(t *testing.T, drafts []requestDraft, legacy *legacyDraft)
	}{
		{
			name:    "nil payload",
			payload: nil,
			wantErr: "request body required",
		},
		{
			name: "batch with nested employee profile",
			payload: &types.RequestPayload{
				Notes: "batch note",
				Users: []types.RequestUserInput{{
					EmployeeProfile: types.EmployeeProfile{Name: "Outer", Departments: "IT"},
					Employee:        &types.EmployeeProfile{EmployeeID: "E9", Name: "Inner"},
					Items:           []types.RequestItemInput{{CategorySlug: "laptop", StartDate: "2024-05-01T00:00:00.000Z"}},
				}},
			},
			check: func(t *testing.T, drafts []requestDraft, legacy *legacyDraft) {
				require.Nil(t, legacy)
				require.Len(t, drafts, 1)
				assert.Equal(t, "E9", drafts[0].profile.EmployeeID)
				assert.Equal(t, "Inner", drafts[0].profile.Name)
				assert.Equal(t, "IT", drafts[0].profile.Departments)
				assert.Equal(t, "batch note", drafts[0].notes)
				require.NotNil(t, drafts[0].items[0].startDate)
				assert.Equal(t, "2024-05-01", drafts[0].items[0].startDate.Format("2006-01-02"))
			},
		},
		{
			name: "single employee with items is a batch of one",
			payload: &types.RequestPayload{
				EmployeeID: "E1",
				Notes:      "note",
				Items:      []types.RequestItemInput{{CategorySlug: "monitor"}, {CategorySlug: "phone"}},
			},
			check: func(t *testing.T, drafts []requestDraft, legacy *legacyDraft) {
				require.Nil(t, legacy)
				require.Len(t, drafts, 1)
				assert.Equal(t, "E1", drafts[0].profile.EmployeeID)
				assert.Equal(t, "E1", drafts[0].profile.Name)
				assert.Equal(t, "note", drafts[0].notes)
				assert.Len(t, drafts[0].items, 2)
			},
		},
		{
			name:    "batch user without employee id",
			payload: &types.RequestPayload{Users: []types.RequestUserInput{{Items: []types.RequestItemInput{{CategorySlug: "laptop"}}}}},
			wantErr: "users[0].employee_id required",
		},
		{
			name:    "batch user without items",
			payload: &types.RequestPayload{Users: []types.RequestUserInput{{EmployeeProfile: types.EmployeeProfile{EmployeeID: "E1"}}}},
			wantErr: "users[0].items required",
		},
		{
			name: "invalid slug after a valid one",
			payload: &types.RequestPayload{Users: []types.RequestUserInput{{
				EmployeeProfile: types.EmployeeProfile{EmployeeID: "E1"},
				Items:           []types.RequestItemInput{{CategorySlug: "laptop"}, {CategorySlug: "lap-top"}},
			}}},
			wantErr: "users[0].items[1].category_slug invalid",
		},
		{
			name: "invalid date",
			payload: &types.RequestPayload{Users: []types.RequestUserInput{{
				EmployeeProfile: types.EmployeeProfile{EmployeeID: "E1"},
				Items:           []types.RequestItemInput{{CategorySlug: "laptop", EndDate: "next week"}},
			}}},
			wantErr: "users[0].items[0].end_date",
		},
		{
			name: "legacy single category",
			payload: &types.RequestPayload{
				EmployeeID:   " E1 ",
				CategorySlug: "phone",
				StartDate:    "2024-01-02",
				Accessories:  []types.AccessoryInput{{Name: "Case"}},
			},
			check: func(t *testing.T, drafts []requestDraft, legacy *legacyDraft) {
				require.Nil(t, drafts)
				require.NotNil(t, legacy)
				assert.Equal(t, "E1", legacy.employeeID)
				assert.Equal(t, "phone", legacy.item.slug)
				assert.Len(t, legacy.accessories, 1)
			},
		},
		{
			name:    "legacy without a valid slug",
			payload: &types.RequestPayload{EmployeeID: "E1", CategorySlug: "Phone"},
			wantErr: "employee_id and valid category_slug required",
		},
		{
			name:    "empty payload",
			payload: &types.RequestPayload{},
			wantErr: "employee_id and valid category_slug required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, legacy, err := normalizeRequest(tt.payload)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrValidation)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, drafts, legacy)
		})
	}
}

func TestClockToday(t *testing.T) {
	clock := Clock(func() time.Time { return time.Date(2024, 2, 29, 23, 59, 0, 0, time.FixedZone("x", 3600)) })
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), clock.Today())

	var zero Clock
	assert.False(t, zero.Today().IsZero())
}
