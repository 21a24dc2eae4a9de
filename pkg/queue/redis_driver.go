package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plantnet/plantnet-server/pkg/logger"
)

const (
	redisQueueKey   = "plantnet:queue:jobs"
	redisDelayedKey = "plantnet:queue:delayed"
)

// RedisDriver keeps immediate jobs on a list (LPUSH/BRPOP) and delayed
// jobs in a sorted set scored by their due time.
type RedisDriver struct {
	rdb *redis.Client
}

// NewRedisDriver shares the client used by pkg/cache.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, redisQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop blocks up to 5s for a job; a timeout returns (nil, nil).
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	result, err := d.rdb.BRPop(ctx, 5*time.Second, redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (d *RedisDriver) PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error {
	runAt := float64(time.Now().Add(delay).Unix())
	if err := d.rdb.ZAdd(ctx, redisDelayedKey, redis.Z{
		Score:  runAt,
		Member: string(payload),
	}).Err(); err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

// Run promotes due delayed jobs every second until ctx is done.
func (d *RedisDriver) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.promote(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("queue/redis: promote delayed jobs", "error", err)
			}
		}
	}
}

func (d *RedisDriver) promote(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	jobs, err := d.rdb.ZRangeByScore(ctx, redisDelayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil || len(jobs) == 0 {
		return err
	}

	for _, job := range jobs {
		// ZREM first so only one promoter pushes a given job.
		removed, err := d.rdb.ZRem(ctx, redisDelayedKey, job).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := d.rdb.LPush(ctx, redisQueueKey, []byte(job)).Err(); err != nil {
			return err
		}
	}
	return nil
}
