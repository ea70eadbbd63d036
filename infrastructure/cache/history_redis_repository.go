package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"multipost/domain/model"
	"multipost/infrastructure/logger"
)

// RedisHistoryRepository stores history as a capped list, newest at the head.
type RedisHistoryRepository struct {
	client   redis.UniversalClient
	key      string
	maxItems int
}

func NewRedisHistoryRepository(client redis.UniversalClient, prefix string, maxItems int) *RedisHistoryRepository {
	if maxItems <= 0 {
		maxItems = 100
	}
	return &RedisHistoryRepository{client: client, key: key(prefix, "history"), maxItems: maxItems}
}

func (r *RedisHistoryRepository) Append(ctx context.Context, entry *model.HistoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, raw)
		pipe.LTrim(ctx, r.key, 0, int64(r.maxItems-1))
		return nil
	})
	return err
}

func (r *RedisHistoryRepository) ReadAll(ctx context.Context) ([]model.HistoryEntry, error) {
	items, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	history := make([]model.HistoryEntry, 0, len(items))
	for _, item := range items {
		var e model.HistoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			logger.GetLogger().WithField("error", err).WithField("key", r.key).Warn("Corrupt history list, resetting")
			if err := r.client.Del(ctx, r.key).Err(); err != nil {
				return nil, err
			}
			return []model.HistoryEntry{}, nil
		}
		history = append(history, e)
	}
	return history, nil
}
