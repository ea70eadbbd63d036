package cache

import (
	"context"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"

	"multipost/infrastructure/configuration"
	"multipost/infrastructure/logger"
)

// NewRedisClient connects to the configured Redis server and pings it.
func NewRedisClient(ctx context.Context, cfg configuration.RedisClient) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.GetLogger().WithField("addr", client.Options().Addr).Info("Redis connected")
	return client, nil
}

func key(prefix string, parts ...string) string {
	k := prefix
	for _, p := range parts {
		if k == "" {
			k = p
			continue
		}
		k += ":" + p
	}
	return k
}
