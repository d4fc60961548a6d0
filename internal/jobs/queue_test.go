package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(client)
}

func TestQueueDeliversOnlyDueJobs(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, q.Schedule(ctx, "due-1", []byte(`{"n":1}`), now.Add(-time.Minute)))
	require.NoError(t, q.Schedule(ctx, "due-2", []byte(`{"n":2}`), now.Add(-time.Second)))
	require.NoError(t, q.Schedule(ctx, "future", []byte(`{"n":3}`), now.Add(time.Hour)))

	jobs, err := q.PopDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "due-1", jobs[0].ID)
	assert.Equal(t, []byte(`{"n":1}`), jobs[0].Payload)
	assert.Equal(t, "due-2", jobs[1].ID)

	// The future job stays queued until its fire time passes.
	jobs, err = q.PopDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	jobs, err = q.PopDue(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "future", jobs[0].ID)
}

func TestQueuePopIsDestructive(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, q.Schedule(ctx, "job-1", []byte("payload"), now.Add(-time.Minute)))

	jobs, err := q.PopDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	jobs, err = q.PopDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestQueueCancelRemovesJob(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, q.Schedule(ctx, "job-1", []byte("payload"), now.Add(-time.Minute)))
	require.NoError(t, q.Cancel(ctx, "job-1"))

	jobs, err := q.PopDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestQueueCancelUnknownJobIsNoop(t *testing.T) {
	q := newTestQueue(t)
	assert.NoError(t, q.Cancel(context.Background(), "never-scheduled"))
}

func TestQueueRescheduleOverwrites(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, q.Schedule(ctx, "job-1", []byte("v1"), now.Add(time.Hour)))
	require.NoError(t, q.Schedule(ctx, "job-1", []byte("v2"), now.Add(-time.Minute)))

	jobs, err := q.PopDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, []byte("v2"), jobs[0].Payload)
}
