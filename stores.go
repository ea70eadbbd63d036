package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"multipost/domain/repository"
	"multipost/infrastructure/cache"
	"multipost/infrastructure/configuration"
	"multipost/infrastructure/logger"
	"multipost/infrastructure/persistence"
	"multipost/infrastructure/pubsub"
	"multipost/infrastructure/servicebus"
)

// resources tracks connections opened for the selected stores.
type resources struct {
	closers []func()
	redis   *redis.Client
}

func (r *resources) add(fn func()) { r.closers = append(r.closers, fn) }

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

func (r *resources) redisClient(ctx context.Context, cfg configuration.RedisClient) (*redis.Client, error) {
	if r.redis != nil {
		return r.redis, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.redis = client
	r.add(func() { _ = client.Close() })
	return client, nil
}

func (r *resources) sqlDB(db *sql.DB) *sql.DB {
	r.add(func() { _ = db.Close() })
	return db
}

func newCredentialStore(ctx context.Context, cfg *configuration.Config, res *resources) (repository.ICredentialStore, error) {
	lg := logger.GetLogger().WithField("store", cfg.Storage.CredentialStore)
	switch cfg.Storage.CredentialStore {
	case "", "file":
		lg.WithField("dir", cfg.Storage.TokensDir).Info("Credential store ready")
		return persistence.NewFileCredentialRepository(cfg.Storage.TokensDir), nil
	case "redis":
		client, err := res.redisClient(ctx, cfg.RedisClient)
		if err != nil {
			return nil, err
		}
		lg.Info("Credential store ready")
		return cache.NewRedisCredentialRepository(client, cfg.RedisClient.KeyPrefix), nil
	case "postgres":
		db, err := persistence.NewPostgreSQLDB(ctx, cfg.Database.Psql)
		if err != nil {
			return nil, err
		}
		res.sqlDB(db)
		if err := persistence.EnsureOAuthTokenSchema(ctx, db); err != nil {
			return nil, err
		}
		lg.Info("Credential store ready")
		return persistence.NewOAuthTokenRepository(db), nil
	case "mssql":
		db, err := persistence.NewMSSQLDB(ctx, cfg.Database.Mssql)
		if err != nil {
			return nil, err
		}
		res.sqlDB(db)
		if err := persistence.EnsureOAuthTokenSchemaMSSQL(ctx, db); err != nil {
			return nil, err
		}
		lg.Info("Credential store ready")
		return persistence.NewOAuthTokenRepositoryMSSQL(db), nil
	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.Storage.CredentialStore)
	}
}

func newHistoryStore(ctx context.Context, cfg *configuration.Config, res *resources) (repository.IHistory, error) {
	lg := logger.GetLogger().WithField("store", cfg.Storage.HistoryStore).WithField("maxItems", cfg.Storage.HistoryMaxItems)
	switch cfg.Storage.HistoryStore {
	case "", "file":
		lg.WithField("file", cfg.Storage.HistoryFile).Info("History store ready")
		return persistence.NewFileHistoryRepository(cfg.Storage.HistoryFile, cfg.Storage.HistoryMaxItems), nil
	case "redis":
		client, err := res.redisClient(ctx, cfg.RedisClient)
		if err != nil {
			return nil, err
		}
		lg.Info("History store ready")
		return cache.NewRedisHistoryRepository(client, cfg.RedisClient.KeyPrefix, cfg.Storage.HistoryMaxItems), nil
	case "mongo":
		client, err := persistence.NewMongoDb(ctx, cfg.Database.Mongo.URI)
		if err != nil {
			return nil, err
		}
		res.add(func() { _ = client.Disconnect(context.Background()) })
		lg.Info("History store ready")
		return persistence.NewMongoHistoryRepository(client, cfg.Database.Mongo.Name, cfg.Database.Mongo.Collection, cfg.Storage.HistoryMaxItems), nil
	default:
		return nil, fmt.Errorf("unknown history store %q", cfg.Storage.HistoryStore)
	}
}

// newNotifiers returns the brokers that are configured. A broker that cannot
// be reached is skipped with a warning.
func newNotifiers(ctx context.Context, cfg *configuration.Config, res *resources) []repository.IOutcomeNotifier {
	var notifiers []repository.IOutcomeNotifier

	if cfg.Pubsub.ProjectID != "" && cfg.Pubsub.TopicID != "" {
		client, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without outcome topic")
		} else {
			res.add(func() { _ = client.Close() })
			notifiers = append(notifiers, pubsub.NewOutcomePubSub(client, cfg.Pubsub.TopicID))
		}
	}

	if cfg.ServiceBus.Namespace != "" && cfg.ServiceBus.Queue != "" {
		client, err := servicebus.NewServiceBus(ctx, cfg.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without outcome queue")
		} else {
			res.add(func() { _ = client.Close(context.Background()) })
			notifiers = append(notifiers, servicebus.NewOutcomeServiceBus(client, cfg.ServiceBus.Queue))
		}
	}
	return notifiers
}
