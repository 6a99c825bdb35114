package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/project-ledger/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSnapshotCache starts a miniredis instance and returns a cache over it.
func setupSnapshotCache(t *testing.T, ttl time.Duration) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewSnapshotCache(NewRedisCacheWithClient(client), ttl), mr
}

func testSnapshot() *models.PortfolioSnapshot {
	return &models.PortfolioSnapshot{
		TotalPortfolioBalance: decimal.RequireFromString("3500.00"),
		TotalProjects:         1,
		ProjectSummaries: []models.ProjectSummary{
			{
				ProjectID:    "p1",
				Name:         "Downtown Office",
				TotalCredits: decimal.RequireFromString("5000"),
				TotalDebits:  decimal.RequireFromString("1500"),
				Profit:       decimal.RequireFromString("3500"),
			},
		},
		DailyStats:   []models.DailyStat{},
		WeeklyStats:  []models.PeriodStat{},
		MonthlyStats: []models.PeriodStat{},
	}
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	cache, _ := setupSnapshotCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user-1", testSnapshot()))

	got, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, 1, got.TotalProjects)
	assert.True(t, got.TotalPortfolioBalance.Equal(decimal.RequireFromString("3500")))
	require.Len(t, got.ProjectSummaries, 1)
	assert.Equal(t, "Downtown Office", got.ProjectSummaries[0].Name)
	assert.True(t, got.ProjectSummaries[0].Profit.Equal(decimal.RequireFromString("3500")))
}

func TestSnapshotCacheMiss(t *testing.T) {
	cache, _ := setupSnapshotCache(t, time.Minute)

	got, err := cache.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	cache, _ := setupSnapshotCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user-1", testSnapshot()))
	require.NoError(t, cache.Invalidate(ctx, "user-1"))

	got, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotCacheExpiry(t *testing.T) {
	cache, mr := setupSnapshotCache(t, 10*time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user-1", testSnapshot()))

	mr.FastForward(11 * time.Second)

	got, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotCacheCorruptEntryTreatedAsMiss(t *testing.T) {
	cache, mr := setupSnapshotCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set(cache.Key("user-1"), "{not json"))

	got, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotCacheKeysAreScopedPerUser(t *testing.T) {
	cache, _ := setupSnapshotCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user-1", testSnapshot()))

	got, err := cache.Get(ctx, "user-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}
