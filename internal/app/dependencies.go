package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/booking/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/booking/internal/health"
	"github.com/vladislavdragonenkov/booking/internal/lock/redislock"
	"github.com/vladislavdragonenkov/booking/internal/service/booking"
	"github.com/vladislavdragonenkov/booking/internal/storage/memory"
	"github.com/vladislavdragonenkov/booking/internal/storage/postgres"
)

// runtimeDependencies содержит хранилища, выбранные конфигурацией.
type runtimeDependencies struct {
	rules        domain.RuleRepository
	resources    domain.ResourceStore
	reservations domain.ReservationStore
	audit        domain.AuditStore
	outboxRepo   domain.OutboxRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("используется in-memory хранилище")
		return &runtimeDependencies{
			rules:        memory.NewRuleRepository(),
			resources:    memory.NewResourceRepository(),
			reservations: memory.NewReservationRepository(),
			audit:        memory.NewAuditRepository(),
			outboxRepo:   memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewPingChecker("storage", func(context.Context) error {
				return nil
			}),
		}, nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires dsn")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.DefaultPoolConfig())
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		logger.Info("используется PostgreSQL хранилище")
		return &runtimeDependencies{
			rules:          postgres.NewRuleRepository(store),
			resources:      postgres.NewResourceRepository(store),
			reservations:   postgres.NewReservationRepository(store),
			audit:          postgres.NewAuditRepository(store),
			outboxRepo:     postgres.NewOutboxRepository(store),
			storageChecker: healthcheck.NewPingChecker("storage", store.Ping),
			closeFn:        store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// outboxChecker сообщает о деградации, когда backlog outbox превышает порог.
func outboxChecker(repo domain.OutboxRepository, maxPending int) healthcheck.Checker {
	return healthcheck.NewBacklogChecker("outbox", maxPending, func(context.Context) (int, error) {
		stats, err := repo.Stats()
		if err != nil {
			return 0, err
		}
		return stats.PendingCount, nil
	})
}

// lockBackend — выбранная реализация блокировок по ресурсу.
type lockBackend struct {
	locker  booking.Locker
	checker healthcheck.Checker
	closeFn func() error
}

func initLocker(cfg Config, logger *log.Entry) (*lockBackend, error) {
	switch cfg.LockDriver {
	case "", LockDriverMemory:
		return &lockBackend{locker: booking.NewKeyedLocker()}, nil
	case LockDriverRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		logger.WithField("addr", opts.Addr).Info("используются блокировки в Redis")
		return &lockBackend{
			locker: redislock.New(client,
				redislock.WithTTL(cfg.LockTTL),
				redislock.WithLogger(logger.WithField("component", "redis-lock")),
			),
			checker: healthcheck.NewPingChecker("lock", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}),
			closeFn: client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported lock driver %q", cfg.LockDriver)
	}
}
