package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"maternar/models"
)

// sqlRecorder keeps the SQL of every statement gorm builds.
type sqlRecorder struct {
	logger.Interface
	stmts []string
}

func (r *sqlRecorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, _ := fc()
	r.stmts = append(r.stmts, sql)
}

func (r *sqlRecorder) last(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, r.stmts)
	return r.stmts[len(r.stmts)-1]
}

// dryRepository builds statements against the postgres dialect without
// connecting to a server.
func dryRepository(t *testing.T) (*Repository, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{Interface: logger.Discard}
	conn, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=maternar dbname=maternar sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	require.NoError(t, err)
	return NewRepository(conn), rec
}

func TestLockUserSelectsForUpdate(t *testing.T) {
	repo, rec := dryRepository(t)
	_, err := repo.LockUser(context.Background(), 7)
	require.NoError(t, err)

	sql := rec.last(t)
	assert.Contains(t, sql, `FROM "users"`)
	assert.Contains(t, sql, `"users"."id" = 7`)
	assert.Contains(t, sql, "FOR UPDATE")
}

func TestTopUsersOrdering(t *testing.T) {
	repo, rec := dryRepository(t)
	ctx := context.Background()

	_, err := repo.TopUsers(ctx, models.MetricWeekly, 5)
	require.NoError(t, err)
	sql := rec.last(t)
	assert.Contains(t, sql, "is_active = true")
	assert.Contains(t, sql, `ORDER BY "weekly_xp" DESC,id ASC`)
	assert.Contains(t, sql, "LIMIT 5")

	_, err = repo.TopUsers(ctx, models.MetricTotal, 0)
	require.NoError(t, err)
	sql = rec.last(t)
	assert.Contains(t, sql, `ORDER BY "total_xp" DESC,id ASC`)
	assert.NotContains(t, sql, "LIMIT")
}

func TestResetWeeklyXPStatement(t *testing.T) {
	repo, rec := dryRepository(t)
	_, err := repo.ResetWeeklyXP(context.Background())
	require.NoError(t, err)

	sql := rec.last(t)
	assert.Contains(t, sql, `UPDATE "users" SET "weekly_xp"=0`)
	assert.Contains(t, sql, "WHERE weekly_xp <> 0")
}

func TestAwardAchievementIgnoresConflict(t *testing.T) {
	repo, rec := dryRepository(t)
	_, err := repo.AwardAchievement(context.Background(), &models.UserAchievement{
		UserID:        7,
		AchievementID: 3,
		EarnedAt:      time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	sql := rec.last(t)
	assert.Contains(t, sql, `INSERT INTO "user_achievements"`)
	assert.Contains(t, sql, "ON CONFLICT DO NOTHING")
}
