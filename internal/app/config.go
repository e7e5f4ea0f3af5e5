package app

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "BOOKING"

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	LockDriverMemory = "memory"
	LockDriverRedis  = "redis"
)

// Config описывает настройки запуска сервиса бронирования.
// Переменные окружения читаются с префиксом BOOKING_, например BOOKING_GRPC_ADDR.
type Config struct {
	GRPCAddr    string `envconfig:"GRPC_ADDR"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	HealthTimeout time.Duration `envconfig:"HEALTH_TIMEOUT"`

	StorageDriver       string `envconfig:"STORAGE_DRIVER"`
	PostgresDSN         string `envconfig:"POSTGRES_DSN"`
	PostgresAutoMigrate bool   `envconfig:"POSTGRES_AUTO_MIGRATE"`

	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	NotificationTopic  string   `envconfig:"NOTIFICATION_TOPIC"`
	DLQTopic           string   `envconfig:"DLQ_TOPIC"`
	KafkaConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP"`

	OutboxPollInterval   time.Duration `envconfig:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize      int           `envconfig:"OUTBOX_BATCH_SIZE"`
	OutboxMaxAttempts    int           `envconfig:"OUTBOX_MAX_ATTEMPTS"`
	OutboxRetryBaseDelay time.Duration `envconfig:"OUTBOX_RETRY_BASE_DELAY"`
	OutboxMaxPending     int           `envconfig:"OUTBOX_MAX_PENDING"`

	OutboxRetention        time.Duration `envconfig:"OUTBOX_RETENTION"`
	OutboxCleanupInterval  time.Duration `envconfig:"OUTBOX_CLEANUP_INTERVAL"`
	OutboxCleanupBatchSize int           `envconfig:"OUTBOX_CLEANUP_BATCH_SIZE"`

	LockDriver  string        `envconfig:"LOCK_DRIVER"`
	RedisURL    string        `envconfig:"REDIS_URL"`
	LockTTL     time.Duration `envconfig:"LOCK_TTL"`
	LockTimeout time.Duration `envconfig:"LOCK_TIMEOUT"`

	OverlapCheck  bool          `envconfig:"OVERLAP_CHECK"`
	InboxCapacity int           `envconfig:"INBOX_CAPACITY"`
	StatsInterval time.Duration `envconfig:"STATS_INTERVAL"`
	SeedDefaults  bool          `envconfig:"SEED_DEFAULTS"`
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",
		LogLevel:    "info",

		HealthTimeout: 2 * time.Second,

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		NotificationTopic:  "booking.notifications",
		DLQTopic:           "booking.notifications.dlq",
		KafkaConsumerGroup: "booking-notifications",

		OutboxPollInterval:   time.Second,
		OutboxBatchSize:      100,
		OutboxMaxAttempts:    5,
		OutboxRetryBaseDelay: 500 * time.Millisecond,
		OutboxMaxPending:     1000,

		OutboxRetention:        24 * time.Hour,
		OutboxCleanupInterval:  10 * time.Minute,
		OutboxCleanupBatchSize: 500,

		LockDriver:  LockDriverMemory,
		LockTTL:     30 * time.Second,
		LockTimeout: 5 * time.Second,

		InboxCapacity: 100,
		StatsInterval: 30 * time.Second,
		SeedDefaults:  true,
	}
}

// LoadConfig накладывает переменные окружения BOOKING_* на DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires %s_POSTGRES_DSN", envPrefix)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	switch c.LockDriver {
	case LockDriverMemory:
	case LockDriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis lock requires %s_REDIS_URL", envPrefix)
		}
	default:
		return fmt.Errorf("unsupported lock driver %q", c.LockDriver)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// KafkaEnabled сообщает, настроена ли доставка уведомлений через Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
