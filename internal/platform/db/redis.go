package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient connects to url and pings it. It returns nil when url is
// empty or the server is unreachable; callers then run without a cache.
func NewRedisClient(ctx context.Context, url string, logger zerolog.Logger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, response cache disabled")
		return nil
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("redis unreachable, response cache disabled")
		_ = rdb.Close()
		return nil
	}
	logger.Info().Str("addr", opts.Addr).Msg("redis connected")
	return rdb
}
