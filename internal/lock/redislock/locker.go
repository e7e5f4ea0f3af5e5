package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTTL        = 30 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
	defaultPrefix     = "booking:lock:"
)

// unlockScript удаляет ключ, только если он всё ещё принадлежит владельцу токена.
const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// ErrLockLost возвращается, когда ключ истёк по TTL и был захвачен другим владельцем.
var ErrLockLost = errors.New("redis lock is no longer held")

// Client — подмножество команд go-redis, нужное локеру.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Option настраивает Locker.
type Option func(*Locker)

// WithTTL задаёт время жизни блокировки на случай падения владельца.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetryDelay задаёт паузу между попытками захвата.
func WithRetryDelay(delay time.Duration) Option {
	return func(l *Locker) {
		if delay > 0 {
			l.retryDelay = delay
		}
	}
}

// WithPrefix задаёт префикс ключей блокировок.
func WithPrefix(prefix string) Option {
	return func(l *Locker) {
		l.prefix = prefix
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(l *Locker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithTokenGenerator подменяет генератор токенов владельца.
func WithTokenGenerator(gen func() string) Option {
	return func(l *Locker) {
		if gen != nil {
			l.token = gen
		}
	}
}

// Locker сериализует операции по ключу между экземплярами сервиса через Redis SET NX PX.
type Locker struct {
	client     Client
	ttl        time.Duration
	retryDelay time.Duration
	prefix     string
	token      func() string
	logger     *log.Entry
}

// New создаёт Locker поверх клиента go-redis.
func New(client Client, options ...Option) *Locker {
	l := &Locker{
		client:     client,
		ttl:        defaultTTL,
		retryDelay: defaultRetryDelay,
		prefix:     defaultPrefix,
		token:      uuid.NewString,
		logger:     log.WithField("component", "redis-lock"),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// Lock повторяет SET NX до успеха или отмены ctx.
// Возвращённый unlock снимает блокировку, только если токен совпадает.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := l.token()

	for {
		acquired, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("acquire lock %s: %w", key, ctxErr)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-time.After(l.retryDelay):
		}
	}

	return func() {
		if err := l.release(redisKey, token); err != nil {
			l.logger.WithError(err).WithField("key", redisKey).Warn("failed to release lock")
		}
	}, nil
}

func (l *Locker) release(redisKey, token string) error {
	// Отмена вызывающего не должна оставлять ключ висеть до истечения TTL.
	ctx, cancel := context.WithTimeout(context.Background(), l.ttl)
	defer cancel()

	deleted, err := l.client.Eval(ctx, unlockScript, []string{redisKey}, token).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", redisKey, err)
	}
	if deleted == 0 {
		return ErrLockLost
	}
	return nil
}
