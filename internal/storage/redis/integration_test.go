//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront/internal/domain/recent"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRecentStore_Redis(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, startRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRecentStore(client, time.Minute)
	require.NoError(t, store.Ping(ctx))

	for i := range recent.Limit + 5 {
		require.NoError(t, store.Touch(ctx, "u1", fmt.Sprintf("p%d", i)))
	}
	require.NoError(t, store.Touch(ctx, "u1", "p10"))

	ids, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ids, recent.Limit)
	assert.Equal(t, "p10", ids[0])
	assert.Equal(t, fmt.Sprintf("p%d", recent.Limit+4), ids[1])

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}

	ttl, err := client.TTL(ctx, recentKey("u1")).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	other, err := store.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
