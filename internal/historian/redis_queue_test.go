package historian

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/typerace/internal/cache"
	"github.com/jason-s-yu/typerace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// Results published by the server side come out of the historian's queue intact.
func TestRedisQueueRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in -short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tc.TerminateContainer(container) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb, err := cache.Connect(ctx, endpoint, 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	pub := cache.NewPublisher(rdb, "results_test", 4, quietLogger())
	queue := NewRedisQueue(rdb, "results_test")

	_, ok, err := queue.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "empty queue times out")

	want := models.RaceResult{
		RaceID:    uuid.New(),
		RoomID:    "ABC123",
		Text:      "hello",
		Standings: []models.Standing{{ConnectionID: "a", PlayerName: "Alice", WPM: 70, Rank: 1}},
	}
	require.NoError(t, pub.Publish(ctx, want))

	store := &memStore{}
	svc := NewService(queue, store, Options{BatchSize: 1, Logger: quietLogger()})
	runService(t, svc)

	require.Eventually(t, func() bool { return store.total() == 1 }, 5*time.Second, 10*time.Millisecond)
	store.mu.Lock()
	got := store.batches[0][0]
	store.mu.Unlock()
	assert.Equal(t, want.RaceID, got.RaceID)
	assert.Equal(t, want.Standings, got.Standings)
}
