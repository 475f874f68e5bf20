package storage_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvoevodskiy/botcms/internal/config"
	"github.com/mvoevodskiy/botcms/internal/storage"
	"github.com/mvoevodskiy/botcms/pkg/api"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newRedisStore(t *testing.T, prefix string) *storage.RedisStore {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	store := storage.NewRedisStore(config.StoreConfig{
		Addr:   server.Addr(),
		Prefix: prefix,
	}, 0)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newRedisStore(t, "test")
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	err := store.Set(ctx, "rec", record{Name: "hello", Count: 3})
	require.NoError(t, err)

	var got record
	ok, err := store.Get(ctx, "rec", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, record{Name: "hello", Count: 3}, got)

	require.NoError(t, store.Delete(ctx, "rec"))
	ok, err = store.Get(ctx, "rec", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreMissingKey(t *testing.T) {
	store := newRedisStore(t, "")
	ctx := context.Background()

	var got record
	ok, err := store.Get(ctx, "nope", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorePrefixIsolation(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	left := storage.NewRedisStore(config.StoreConfig{
		Addr:   server.Addr(),
		Prefix: "left",
	}, 0)
	right := storage.NewRedisStore(config.StoreConfig{
		Addr:   server.Addr(),
		Prefix: "right",
	}, 0)
	t.Cleanup(func() {
		_ = left.Close()
		_ = right.Close()
	})

	ctx := context.Background()
	require.NoError(t, left.Set(ctx, "rec", record{Name: "left"}))

	var got record
	ok, err := right.Get(ctx, "rec", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = left.Get(ctx, "rec", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "left", got.Name)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	err := store.Set(ctx, "rec", record{Name: "mem", Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Sets)
	assert.Equal(t, 1, store.Len())

	var got record
	ok, err := store.Get(ctx, "rec", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "mem", got.Name)

	require.NoError(t, store.Delete(ctx, "rec"))
	assert.Equal(t, 0, store.Len())
}

func TestCallbackRoundTrip(t *testing.T) {
	store := storage.NewCallbackStore(storage.NewMemoryStore(), 0)
	ctx := context.Background()

	data := &api.CallbackData{
		Data:    "confirm",
		Handler: "orders.confirm",
		Params:  api.Params{"id": "42"},
		Answer:  "done",
		Path:    api.Path("c.orders.confirm"),
	}
	key, err := store.Build(ctx, data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, storage.CallbackPrefix))

	got, ok, err := store.Resolve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, data, got)
}

func TestCallbackKeyIsContentAddressed(t *testing.T) {
	store := storage.NewCallbackStore(storage.NewMemoryStore(), 0)
	ctx := context.Background()

	first, err := store.Build(ctx, &api.CallbackData{Data: "same"})
	require.NoError(t, err)
	second, err := store.Build(ctx, &api.CallbackData{Data: "same"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := store.Build(ctx, &api.CallbackData{Data: "other"})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestCallbackRetentionIndependent(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	store := storage.NewRedisStore(config.StoreConfig{
		Addr: server.Addr(),
	}, time.Hour)
	t.Cleanup(func() {
		_ = store.Close()
	})
	callbacks := storage.NewCallbackStore(store, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sess", record{Name: "session"}))
	assert.Equal(t, time.Hour, server.TTL("sess"))

	key, err := callbacks.Build(ctx, &api.CallbackData{Data: "press"})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, server.TTL(key))
}

func TestCallbackKeptForeverByDefault(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	store := storage.NewRedisStore(config.StoreConfig{
		Addr: server.Addr(),
	}, time.Hour)
	t.Cleanup(func() {
		_ = store.Close()
	})
	callbacks := storage.NewCallbackStore(store, 0)

	key, err := callbacks.Build(
		context.Background(), &api.CallbackData{Data: "press"},
	)
	require.NoError(t, err)
	assert.Zero(t, server.TTL(key))
}

func TestCallbackResolveMissing(t *testing.T) {
	store := storage.NewCallbackStore(storage.NewMemoryStore(), 0)

	got, ok, err := store.Resolve(context.Background(), "cb:missing")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}
