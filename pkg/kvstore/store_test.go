package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// exerciseStore checks the get/set/remove contract every backend must honor.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, KeyCart)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyCart, `{"items":[]}`))
	got, err := store.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, got)

	require.NoError(t, store.Set(ctx, KeyCart, `{"items":[{"productId":"P1"}]}`))
	got, err = store.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[{"productId":"P1"}]}`, got)

	require.NoError(t, store.Remove(ctx, KeyCart))
	_, err = store.Get(ctx, KeyCart)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Remove(ctx, "missing"), "removing an absent key is not an error")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLStore(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "kv.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Entry{}))

	exerciseStore(t, NewSQL(conn))
}

func TestSQLStorePurgeBefore(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "kv.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Entry{}))

	store := NewSQL(conn)
	base := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	require.NoError(t, store.Set(context.Background(), "device:a:food_order_cart", "{}"))
	store.now = func() time.Time { return base.Add(48 * time.Hour) }
	require.NoError(t, store.Set(context.Background(), "device:b:food_order_cart", "{}"))

	removed, err := store.PurgeBefore(context.Background(), base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.Get(context.Background(), "device:a:food_order_cart")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(context.Background(), "device:b:food_order_cart")
	assert.NoError(t, err)
}

func TestRedisStore(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedis(fake, time.Hour)
	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), KeyAuthToken, "tok"))
	assert.Equal(t, time.Hour, fake.ttls["sf:kv:"+KeyAuthToken])
}

func TestRedisStoreWrapsFailures(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	store := NewRedis(fake, 0)

	_, err := store.Get(context.Background(), KeyCart)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, fake.err)
}

func TestForDeviceIsolatesKeys(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	a := ForDevice(mem, "device-a")
	b := ForDevice(mem, "device-b")

	require.NoError(t, a.Set(ctx, KeyAuthToken, "token-a"))
	_, err := b.Get(ctx, KeyAuthToken)
	require.ErrorIs(t, err, ErrNotFound)

	raw, err := mem.Get(ctx, DeviceKey("device-a", KeyAuthToken))
	require.NoError(t, err)
	assert.Equal(t, "token-a", raw)
}

func TestForDeviceWithoutDeviceIsUnavailable(t *testing.T) {
	store := ForDevice(NewMemory(), "  ")
	_, err := store.Get(context.Background(), KeyCart)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, store.Set(context.Background(), KeyCart, "{}"), ErrUnavailable)
	assert.ErrorIs(t, store.Remove(context.Background(), KeyCart), ErrUnavailable)
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) KVKey(key string) string { return "sf:kv:" + key }
