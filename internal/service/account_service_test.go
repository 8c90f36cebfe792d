package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/testutil"
)

func TestAccountDirectoryCachesByScope(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	repo := testutil.NewAccounts(
		models.SocialAccount{ID: "a1", ClientID: "c1", Platform: "instagram"},
		models.SocialAccount{ID: "a2", ClientID: "c1", ProjectID: "p1", Platform: "tiktok"},
		models.SocialAccount{ID: "a3", ClientID: "c1", ProjectID: "p2", Platform: "tiktok"},
	)
	fc := cache.New(func() time.Time { return now })
	dir := NewAccountDirectory(repo, fc, time.Minute)
	ctx := context.Background()

	accounts, err := dir.List(ctx, "c1", "p1")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	_, err = dir.List(ctx, "c1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Calls)

	now = now.Add(61 * time.Second)
	_, err = dir.List(ctx, "c1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.Calls)

	dir.Invalidate("c1", "p1")
	_, err = dir.List(ctx, "c1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.Calls)
}

func TestAccountDirectoryGet(t *testing.T) {
	repo := testutil.NewAccounts(models.SocialAccount{ID: "a1", ClientID: "c1", Platform: "instagram"})
	dir := NewAccountDirectory(repo, cache.New(nil), time.Minute)

	sa, err := dir.Get(context.Background(), "c1", "p1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "instagram", sa.Platform)

	_, err = dir.Get(context.Background(), "c1", "p1", "a3")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
