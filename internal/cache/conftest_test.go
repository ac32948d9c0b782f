package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragway/internal/kv"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn     func(ctx context.Context, key string) ([]byte, error)
	setFn     func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn     func(ctx context.Context, key string) error
	existsFn  func(ctx context.Context, key string) (bool, error)
	expireFn  func(ctx context.Context, key string, ttl time.Duration) error
	deleteFn  func(ctx context.Context, pattern string) (int, error)
	pingFn    func(ctx context.Context) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, kv.ErrKeyNotFound
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if m.expireFn != nil {
		return m.expireFn(ctx, key, ttl)
	}
	return nil
}

func (m *mockStore) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, pattern)
	}
	return 0, nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func newTestGateway(t *testing.T) (*Gateway, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	g := New(ms, time.Hour, nil, zap.NewNop())
	return g, ms
}
