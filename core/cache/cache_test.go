package cache

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var redisAddr string

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("error starting redis container: %v", err)
	}

	redisAddr, err = container.Endpoint(ctx, "")
	if err != nil {
		log.Fatalf("error getting redis endpoint: %v", err)
	}

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		log.Fatalf("error tearing down redis container: %v", err)
	}
	os.Exit(code)
}

func TestKey(t *testing.T) {
	t.Run("Equivalent parts share a key", func(t *testing.T) {
		assert.Equal(t, Key("route", "Who bought Widget?"), Key("route", "  who bought widget? "))
	})

	t.Run("Namespaces separate keys", func(t *testing.T) {
		assert.NotEqual(t, Key("route", "q"), Key("answer", "q"))
	})

	t.Run("Part boundaries matter", func(t *testing.T) {
		assert.NotEqual(t, Key("report", "ab", "c"), Key("report", "a", "bc"))
	})

	t.Run("Key carries the prefix", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(Key("route", "q"), KeyPrefix+"route:"))
	})
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	t.Run("Set and get", func(t *testing.T) {
		require.NoError(t, c.Set("a", []byte("1"), 0))
		val, found := c.Get("a")
		assert.True(t, found)
		assert.Equal(t, []byte("1"), val)
	})

	t.Run("Expired value is a miss", func(t *testing.T) {
		require.NoError(t, c.Set("short", []byte("x"), time.Millisecond))
		time.Sleep(10 * time.Millisecond)
		_, found := c.Get("short")
		assert.False(t, found)
	})

	t.Run("Stored values are copies", func(t *testing.T) {
		value := []byte("answer")
		require.NoError(t, c.Set("copy", value, 0))
		value[0] = 'X'

		got, found := c.Get("copy")
		require.True(t, found)
		assert.Equal(t, []byte("answer"), got, "Expected caller writes not to reach the cache")

		got[0] = 'Y'
		again, _ := c.Get("copy")
		assert.Equal(t, []byte("answer"), again, "Expected returned values to be copies")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, c.Set("b", []byte("2"), 0))
		require.NoError(t, c.Delete("b"))
		_, found := c.Get("b")
		assert.False(t, found)
	})

	t.Run("Clear keeps foreign keys", func(t *testing.T) {
		key := Key("test", "clear")
		require.NoError(t, c.Set(key, []byte("3"), 0))
		require.NoError(t, c.Set("foreign", []byte("keep"), 0))

		require.NoError(t, c.Clear())

		_, found := c.Get(key)
		assert.False(t, found)
		foreign, found := c.Get("foreign")
		assert.True(t, found)
		assert.Equal(t, []byte("keep"), foreign)
	})

	t.Run("Non-positive TTL keeps entries", func(t *testing.T) {
		forever := NewMemoryCache(0)
		require.NoError(t, forever.Set("k", []byte("v"), 0))
		_, expiration, found := forever.cache.GetWithExpiration("k")
		require.True(t, found)
		assert.True(t, expiration.IsZero(), "Expected no expiration time")
	})
}

func TestRedisCache(t *testing.T) {
	c, err := NewRedisCache(redisAddr, "", 0, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	t.Run("Set and get", func(t *testing.T) {
		key := Key("test", "set-get")
		require.NoError(t, c.Set(key, []byte("value"), 0))
		val, found := c.Get(key)
		assert.True(t, found)
		assert.Equal(t, []byte("value"), val)
	})

	t.Run("Missing key is a miss", func(t *testing.T) {
		_, found := c.Get(Key("test", "missing"))
		assert.False(t, found)
	})

	t.Run("Delete", func(t *testing.T) {
		key := Key("test", "delete")
		require.NoError(t, c.Set(key, []byte("value"), 0))
		require.NoError(t, c.Delete(key))
		_, found := c.Get(key)
		assert.False(t, found)
	})

	t.Run("Clear keeps foreign keys", func(t *testing.T) {
		require.NoError(t, c.Set(Key("test", "clear"), []byte("value"), 0))
		require.NoError(t, c.client.Set("foreign", "keep", 0).Err())

		require.NoError(t, c.Clear())

		_, found := c.Get(Key("test", "clear"))
		assert.False(t, found)
		foreign, err := c.client.Get("foreign").Result()
		require.NoError(t, err)
		assert.Equal(t, "keep", foreign)
	})

	t.Run("Unreachable redis", func(t *testing.T) {
		_, err := NewRedisCache("127.0.0.1:1", "", 0, time.Minute)
		assert.Error(t, err)
	})
}

func TestLayeredCache(t *testing.T) {
	shared, err := NewRedisCache(redisAddr, "", 0, time.Minute)
	require.NoError(t, err)
	defer shared.Close()

	local := NewMemoryCache(time.Minute)
	c := NewLayeredCache(local, shared)

	t.Run("Set writes both layers", func(t *testing.T) {
		key := Key("layered", "both")
		require.NoError(t, c.Set(key, []byte("v"), 0))

		_, foundLocal := local.Get(key)
		_, foundShared := shared.Get(key)
		assert.True(t, foundLocal)
		assert.True(t, foundShared)
	})

	t.Run("Shared hit is promoted to local", func(t *testing.T) {
		key := Key("layered", "promote")
		require.NoError(t, shared.Set(key, []byte("v"), 0))

		val, found := c.Get(key)
		assert.True(t, found)
		assert.Equal(t, []byte("v"), val)

		_, foundLocal := local.Get(key)
		assert.True(t, foundLocal)
	})

	t.Run("Delete removes both layers", func(t *testing.T) {
		key := Key("layered", "delete")
		require.NoError(t, c.Set(key, []byte("v"), 0))
		require.NoError(t, c.Delete(key))

		_, found := c.Get(key)
		assert.False(t, found)
	})
}
