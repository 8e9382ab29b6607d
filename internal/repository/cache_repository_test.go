package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCacheRepository(client, nil), mr
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	type entry struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, repo.Set(ctx, "resources:list:all", entry{Name: "Oscilloscope", Count: 3}, time.Minute))

	var got entry
	require.NoError(t, repo.Get(ctx, "resources:list:all", &got))
	assert.Equal(t, "Oscilloscope", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestCacheRepositoryMiss(t *testing.T) {
	repo, _ := newCacheRepo(t)

	var dest map[string]string
	err := repo.Get(context.Background(), "missing", &dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositoryExpiry(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", "v", time.Second))
	mr.FastForward(2 * time.Second)

	var dest string
	err := repo.Get(ctx, "k", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "resources:list:a", "1", time.Minute))
	require.NoError(t, repo.Set(ctx, "resources:list:b", "2", time.Minute))
	require.NoError(t, repo.Set(ctx, "announcements:list", "3", time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "resources:list:*"))

	var dest string
	assert.True(t, errors.Is(repo.Get(ctx, "resources:list:a", &dest), appErrors.ErrCacheMiss))
	assert.True(t, errors.Is(repo.Get(ctx, "resources:list:b", &dest), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Get(ctx, "announcements:list", &dest))
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest string
	assert.True(t, errors.Is(repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "k", "v", time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
	assert.NoError(t, repo.Close())
}
