package statusbus

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightmind-health/chartwatch/internal/monitor"
)

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPublisher(client, "chartwatch:status")
}

func TestPublishAndReadStatus(t *testing.T) {
	pub := newTestPublisher(t)
	ctx := context.Background()

	snap, err := pub.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "no snapshot before first publish")

	require.NoError(t, pub.PublishStatus(ctx, monitor.StatsSnapshot{Scans: 7, Converted: 3}))

	snap, err = pub.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 7, snap.Scans)
	assert.Equal(t, 3, snap.Converted)
}

func TestLogRingTrims(t *testing.T) {
	pub := newTestPublisher(t)
	ctx := context.Background()

	for i := 0; i < logRingMax+20; i++ {
		err := pub.AppendLog(ctx, "info", fmt.Sprintf("cycle %d", i), "")
		require.NoError(t, err)
	}

	entries, err := pub.RecentLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, logRingMax)
	// Newest first.
	assert.Equal(t, fmt.Sprintf("cycle %d", logRingMax+19), entries[0].Message)
}

func TestRecentLogsLimit(t *testing.T) {
	pub := newTestPublisher(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, pub.AppendLog(ctx, "info", fmt.Sprintf("m%d", i), "Doe, Jane"))
	}
	entries, err := pub.RecentLogs(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
