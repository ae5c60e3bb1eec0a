package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternar/models"
	"maternar/store"
)

func TestWithTxRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := &models.User{Email: "ana@maternar.com", Username: "ana", Level: 1}
	require.NoError(t, s.CreateUser(ctx, u))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Store) error {
		locked, err := tx.LockUser(ctx, u.ID)
		require.NoError(t, err)
		locked.TotalXP = 500
		require.NoError(t, tx.UpdateUser(ctx, locked))
		require.NoError(t, tx.CreateCourse(ctx, &models.Course{Title: "LGPD", IsActive: true}))
		require.NoError(t, tx.AppendActivity(ctx, &models.ActivityLog{UserID: u.ID, Type: models.ActivityXPGain}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalXP)
	courses, err := s.ListCourses(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, courses)
	acts, err := s.ListActivities(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, acts)

	// ids handed out inside the failed transaction are reused
	c := &models.Course{Title: "Onboarding", IsActive: true}
	require.NoError(t, s.CreateCourse(ctx, c))
	assert.Equal(t, u.ID+1, c.ID)
}

func TestWithTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := &models.User{Email: "bia@maternar.com", Username: "bia", Level: 1}
	require.NoError(t, s.CreateUser(ctx, u))

	require.NoError(t, s.WithTx(ctx, func(tx store.Store) error {
		locked, err := tx.LockUser(ctx, u.ID)
		if err != nil {
			return err
		}
		locked.TotalXP = 80
		return tx.UpdateUser(ctx, locked)
	}))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.TotalXP)
}
