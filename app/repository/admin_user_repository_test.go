package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/connectboard/app/models"
)

func TestAdminUserRepository(t *testing.T) {
	repo := NewAdminUserRepository(newTestDB(t))
	ctx := context.Background()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	u, err := models.NewAdminUser("ops@example.com", "pw-123456")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByEmail(ctx, " OPS@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Nil(t, got.LastLoginAt)

	require.NoError(t, repo.TouchLastLogin(ctx, u.ID, time.Now()))
	got, err = repo.GetByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
