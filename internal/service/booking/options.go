package booking

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/booking/internal/domain"
	"github.com/vladislavdragonenkov/booking/internal/metrics"
)

const (
	defaultLockTimeout = 10 * time.Second
	defaultOpTimeout   = 5 * time.Second
)

// Options задаёт необязательные параметры Coordinator.
type Options struct {
	Logger       *log.Entry
	Metrics      *metrics.BookingMetrics
	Locker       Locker
	Notifier     domain.Notifier
	Clock        func() time.Time
	LockTimeout  time.Duration
	OpTimeout    time.Duration
	OverlapCheck bool
}

// Option настраивает Coordinator.
type Option func(*Options)

// WithLogger задаёт logger координатора.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics включает запись метрик.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithLocker подменяет механизм сериализации по ресурсу (например, на Redis).
func WithLocker(locker Locker) Option {
	return func(opts *Options) {
		opts.Locker = locker
	}
}

// WithNotifier задаёт канал уведомлений.
func WithNotifier(notifier domain.Notifier) Option {
	return func(opts *Options) {
		opts.Notifier = notifier
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = now
	}
}

// WithLockTimeout ограничивает ожидание блокировки ресурса.
func WithLockTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.LockTimeout = timeout
	}
}

// WithOpTimeout ограничивает время работы с хранилищами после захвата блокировки.
func WithOpTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.OpTimeout = timeout
	}
}

// WithOverlapCheck запрещает бронирования, пересекающиеся с действующими на том же ресурсе.
func WithOverlapCheck(enabled bool) Option {
	return func(opts *Options) {
		opts.OverlapCheck = enabled
	}
}
