package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	scheduleKey = "jobs:expiry:schedule"
	payloadKey  = "jobs:expiry:payloads"

	popBatchSize = 100
)

// Job is a delayed unit of work pulled off the queue once its fire time
// has passed.
type Job struct {
	ID      string
	Payload []byte
}

// Queue schedules jobs for a future time and hands back the ones that
// are due. Cancellation is advisory: a job may fire concurrently with
// its cancellation and handlers must tolerate that.
type Queue interface {
	Schedule(ctx context.Context, jobID string, payload []byte, at time.Time) error
	Cancel(ctx context.Context, jobID string) error
	PopDue(ctx context.Context, now time.Time) ([]Job, error)
}

type redisQueue struct {
	client *redis.Client
}

// NewRedisQueue builds a Queue backed by a sorted set scored by fire time.
func NewRedisQueue(client *redis.Client) Queue {
	return &redisQueue{client: client}
}

// popScript removes due members and their payloads in one atomic step so
// two pollers never claim the same job.
var popScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
local out = {}
for i, id in ipairs(due) do
  redis.call('ZREM', KEYS[1], id)
  local payload = redis.call('HGET', KEYS[2], id)
  redis.call('HDEL', KEYS[2], id)
  out[2*i-1] = id
  out[2*i] = payload or ''
end
return out
`)

func (q *redisQueue) Schedule(ctx context.Context, jobID string, payload []byte, at time.Time) error {
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, payloadKey, jobID, payload)
	pipe.ZAdd(ctx, scheduleKey, redis.Z{Score: float64(at.Unix()), Member: jobID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobID, err)
	}
	return nil
}

func (q *redisQueue) Cancel(ctx context.Context, jobID string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, scheduleKey, jobID)
	pipe.HDel(ctx, payloadKey, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", jobID, err)
	}
	return nil
}

func (q *redisQueue) PopDue(ctx context.Context, now time.Time) ([]Job, error) {
	res, err := popScript.Run(ctx, q.client,
		[]string{scheduleKey, payloadKey},
		now.Unix(), popBatchSize,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to pop due jobs: %w", err)
	}

	jobs := make([]Job, 0, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		jobs = append(jobs, Job{ID: res[i], Payload: []byte(res[i+1])})
	}
	return jobs, nil
}
