package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stock_realtime/internal/feature/calendar/domain/entity"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを準備します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")
	require.NoError(t, db.AutoMigrate(&SessionOverrideModel{}), "failed to migrate table")
	return db
}

func TestOverrideGorm_GetOverride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		setupFunc    func(t *testing.T, repo *overrideGorm)
		date         string
		validateFunc func(t *testing.T, ov *entity.Override)
	}{
		{
			name: "absent date returns nil",
			date: "2024-01-15",
			validateFunc: func(t *testing.T, ov *entity.Override) {
				assert.Nil(t, ov)
			},
		},
		{
			name: "holiday",
			setupFunc: func(t *testing.T, repo *overrideGorm) {
				require.NoError(t, repo.Upsert(context.Background(), []entity.Override{
					{Date: "2024-12-25", Closed: true, Event: "Christmas"},
				}))
			},
			date: "2024-12-25",
			validateFunc: func(t *testing.T, ov *entity.Override) {
				require.NotNil(t, ov)
				assert.True(t, ov.Closed)
				assert.Equal(t, "Christmas", ov.Event)
			},
		},
		{
			name: "early close",
			setupFunc: func(t *testing.T, repo *overrideGorm) {
				require.NoError(t, repo.Upsert(context.Background(), []entity.Override{
					{Date: "2024-11-29", Session: "23:30~03:00", Event: "Black Friday"},
					{Date: "2024-12-24", Session: "23:30~03:00"},
				}))
			},
			date: "2024-11-29",
			validateFunc: func(t *testing.T, ov *entity.Override) {
				require.NotNil(t, ov)
				assert.False(t, ov.Closed)
				assert.Equal(t, "23:30~03:00", ov.Session)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := NewOverrideRepository(setupTestDB(t))
			if tt.setupFunc != nil {
				tt.setupFunc(t, repo)
			}

			ov, err := repo.GetOverride(context.Background(), tt.date)
			require.NoError(t, err)
			tt.validateFunc(t, ov)
		})
	}
}

// TestOverrideGorm_UpsertReplaces は同じ日付の再登録で内容が上書きされることを検証します。
func TestOverrideGorm_UpsertReplaces(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewOverrideRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []entity.Override{{Date: "2024-07-03", Session: "22:30~02:00"}}))
	require.NoError(t, repo.Upsert(ctx, []entity.Override{{Date: "2024-07-03", Closed: true, Event: "Independence Day"}}))

	var count int64
	require.NoError(t, db.Model(&SessionOverrideModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	ov, err := repo.GetOverride(ctx, "2024-07-03")
	require.NoError(t, err)
	require.NotNil(t, ov)
	assert.True(t, ov.Closed)
	assert.Equal(t, "Independence Day", ov.Event)
}

func TestOverrideGorm_UpsertEmpty(t *testing.T) {
	t.Parallel()

	repo := NewOverrideRepository(setupTestDB(t))
	assert.NoError(t, repo.Upsert(context.Background(), nil))
}
