package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"multipost/domain/model"
)

// RedisCredentialRepository keeps one JSON document per platform under
// <prefix>:credential:<platform>.
type RedisCredentialRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCredentialRepository(client redis.UniversalClient, prefix string) *RedisCredentialRepository {
	return &RedisCredentialRepository{client: client, prefix: prefix}
}

func (r *RedisCredentialRepository) Get(ctx context.Context, platform model.Platform) (*model.PlatformCredential, error) {
	raw, err := r.client.Get(ctx, key(r.prefix, "credential", string(platform))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	var cred model.PlatformCredential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *RedisCredentialRepository) Put(ctx context.Context, cred *model.PlatformCredential) error {
	if cred == nil || cred.Platform == "" {
		return errors.New("credential platform is required")
	}
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	raw, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(r.prefix, "credential", string(cred.Platform)), raw, 0).Err()
}
