package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	items   map[string][]byte
	deleted []string
	getErr  error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	m.items = make(map[string][]byte)
	return nil
}

func TestCacheServiceHitMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out map[string]int
	assert.False(t, svc.Get(ctx, "k", &out))
	svc.Set(ctx, "k", map[string]int{"a": 1})
	assert.True(t, svc.Get(ctx, "k", &out))
	assert.Equal(t, 1, out["a"])

	repo.getErr = errors.New("redis down")
	assert.False(t, svc.Get(ctx, "k", &out))

	svc.Invalidate(ctx, "solve:*")
	assert.Equal(t, []string{"solve:*"}, repo.deleted)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(2), snap.CacheMisses)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)
	svc.Set(context.Background(), "k", 1)
	assert.Empty(t, repo.items)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}
