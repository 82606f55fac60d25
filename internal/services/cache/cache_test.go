package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/matcher"
)

type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	gets    int
	failing error
	setErr  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failing != nil {
		return redis.NewStringResult("", f.failing)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing != nil {
		return redis.NewStatusResult("", f.failing)
	}
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func sampleMatches() []models.LenderMatch {
	return []models.LenderMatch{
		{Lender: models.Lender{ID: 2, Name: "HomeFund Bank"}, FinalScore: 93.27, Reasons: []string{"Specializes in home loans"}},
		{Lender: models.Lender{ID: 1, Name: "FastCash Inc."}, FinalScore: 70},
	}
}

func TestResultStore_SaveFillsCache(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	backing := matcher.NewMemoryResultStore()
	store := NewResultStore(rdb, backing, time.Hour, nil)

	require.NoError(t, store.Save(ctx, "s1", sampleMatches()))
	assert.Contains(t, rdb.data, "matches:s1")
	assert.Equal(t, time.Hour, rdb.ttls["matches:s1"])

	require.NoError(t, backing.Delete(ctx, "s1"))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleMatches(), got, "served from cache")
}

func TestResultStore_MissReadsBackingAndFills(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	backing := matcher.NewMemoryResultStore()
	require.NoError(t, backing.Save(ctx, "s1", sampleMatches()))
	store := NewResultStore(rdb, backing, time.Minute, nil)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleMatches(), got)
	assert.Contains(t, rdb.data, "matches:s1")

	none, err := store.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NotContains(t, rdb.data, "matches:unknown")
}

func TestResultStore_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.failing = errors.New("connection refused")
	backing := matcher.NewMemoryResultStore()
	store := NewResultStore(rdb, backing, time.Minute, nil)

	require.NoError(t, store.Save(ctx, "s1", sampleMatches()))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleMatches(), got)
}

func TestResultStore_FailedRefreshDropsSupersededList(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	backing := matcher.NewMemoryResultStore()
	store := NewResultStore(rdb, backing, time.Minute, nil)

	require.NoError(t, store.Save(ctx, "s1", sampleMatches()))
	require.Contains(t, rdb.data, "matches:s1")

	rdb.setErr = errors.New("OOM command not allowed")
	second := []models.LenderMatch{{Lender: models.Lender{ID: 7, Name: "PersonalTrust"}, FinalScore: 60}}
	require.NoError(t, store.Save(ctx, "s1", second))
	assert.NotContains(t, rdb.data, "matches:s1")

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestResultStore_CorruptEntryIgnored(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.data["matches:s1"] = "{not json"
	backing := matcher.NewMemoryResultStore()
	require.NoError(t, backing.Save(ctx, "s1", sampleMatches()))
	store := NewResultStore(rdb, backing, time.Minute, nil)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleMatches(), got)
}

func TestResultStore_Delete(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	backing := matcher.NewMemoryResultStore()
	store := NewResultStore(rdb, backing, time.Minute, nil)

	require.NoError(t, store.Save(ctx, "s1", sampleMatches()))
	require.NoError(t, store.Delete(ctx, "s1"))

	assert.NotContains(t, rdb.data, "matches:s1")
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
