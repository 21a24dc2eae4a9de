package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/plantnet/plantnet-server/pkg/cache"
)

func TestNilCacheAlwaysMisses(t *testing.T) {
	var c *cache.Redis
	ctx := context.Background()

	var out []string
	assert.False(t, c.Get(ctx, "plants:all", &out))
	assert.NoError(t, c.Set(ctx, "plants:all", []string{"fern"}, time.Minute))
	assert.NoError(t, c.Del(ctx, "plants:all"))
	assert.NoError(t, c.Flush(ctx, "plants:"))
	assert.Nil(t, c.Client())
	assert.NoError(t, c.Close())
}

func TestUnreachableServerMisses(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := cache.New(rdb, "test:")
	defer c.Close()

	var out map[string]int
	assert.False(t, c.Get(context.Background(), "k", &out))
}

func TestConnectFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := cache.Connect(ctx, "127.0.0.1:1", "")
	assert.Error(t, err)
}
