package repositories

import (
	"context"
	"fmt"

	"echolink/internal/core/ports"
	"echolink/internal/infrastructure/reliability"
	"echolink/internal/infrastructure/repositories/memory"
	redisrepo "echolink/internal/infrastructure/repositories/redis"
	"echolink/internal/infrastructure/repositories/sqlite"
	"echolink/pkg/circuitbreaker"
	"echolink/pkg/config"
	"echolink/pkg/retry"

	"go.uber.org/zap"
)

// Stores bundles the storage collaborators selected by configuration.
type Stores struct {
	Messages ports.MessageStore
	Rooms    ports.RoomStore

	// Closer releases backend resources, nil for backends without any.
	Closer func() error

	// Ping probes backend liveness for the health endpoint, nil for the
	// in-memory backend.
	Ping func(ctx context.Context) error
}

// NewStores builds the configured storage backend. Remote backends are
// wrapped with retry and a circuit breaker; the in-memory backend is
// used as-is.
func NewStores(cfg *config.Config, logger *zap.SugaredLogger) (*Stores, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return &Stores{
			Messages: memory.NewMemoryMessageStore(),
			Rooms:    memory.NewMemoryRoomStore(),
		}, nil

	case "redis":
		client, err := redisrepo.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		stores := &Stores{
			Messages: redisrepo.NewRedisMessageStore(client),
			Rooms:    redisrepo.NewRedisRoomStore(client),
			Closer:   client.Close,
			Ping: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
		}
		wrap(stores, cfg, logger)
		return stores, nil

	case "sqlite":
		store, err := sqlite.NewStore(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		stores := &Stores{
			Messages: store,
			Rooms:    store,
			Closer:   store.Close,
			Ping:     store.Ping,
		}
		wrap(stores, cfg, logger)
		return stores, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

func wrap(stores *Stores, cfg *config.Config, logger *zap.SugaredLogger) {
	if !cfg.Storage.RetryEnabled {
		return
	}
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Storage.MaxAttempts

	stores.Messages = reliability.NewMessageStoreWrapper(stores.Messages, retryCfg, circuitbreaker.DefaultConfig(), logger)
	stores.Rooms = reliability.NewRoomStoreWrapper(stores.Rooms, retryCfg)
}
