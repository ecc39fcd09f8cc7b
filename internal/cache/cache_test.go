package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

var sampleSegments = []model.Segment{
	{VideoID: "vid1", Sequence: 0, Text: "Order, order.", Start: 0, End: 2},
	{VideoID: "vid1", Sequence: 1, Text: "The NHS funding bill", Start: 2, End: 5.5},
}

func TestTiered_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := New(nil, time.Hour, 0, zap.NewNop())

	_, ok := c.Get(ctx, "vid1")
	assert.False(t, ok)

	c.Set(ctx, "vid1", sampleSegments)
	got, ok := c.Get(ctx, "vid1")
	require.True(t, ok)
	assert.Equal(t, sampleSegments, got)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.NoError(t, c.Close())
}

func TestTiered_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(nil, time.Minute, 0, zap.NewNop())
	c.now = func() time.Time { return now }

	c.Set(ctx, "vid1", sampleSegments)
	now = now.Add(2 * time.Minute)

	_, ok := c.Get(ctx, "vid1")
	assert.False(t, ok)
}

func TestTiered_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(nil, time.Hour, 2, zap.NewNop())
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		c.Set(ctx, fmt.Sprintf("vid%d", i), sampleSegments)
		now = now.Add(time.Second)
	}

	_, ok := c.Get(ctx, "vid0")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "vid1")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "vid2")
	assert.True(t, ok)
}

func TestNewRedisClient_Unconfigured(t *testing.T) {
	rdb, err := NewRedisClient(context.Background(), config.RedisConfig{})
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestTiered_RedisTier(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb, err := NewRedisClient(ctx, config.RedisConfig{Addr: host + ":" + port.Port()})
	require.NoError(t, err)

	writer := New(rdb, time.Hour, 0, zap.NewNop())
	writer.Set(ctx, "vid1", sampleSegments)

	// a fresh process sees the value through Redis only
	reader := New(redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()}), time.Hour, 0, zap.NewNop())
	defer reader.Close()
	got, ok := reader.Get(ctx, "vid1")
	require.True(t, ok)
	assert.Equal(t, sampleSegments, got)

	ttl, err := rdb.TTL(ctx, Key("vid1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	require.NoError(t, writer.Close())
}
