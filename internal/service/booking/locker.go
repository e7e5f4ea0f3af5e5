package booking

import (
	"context"
	"fmt"
	"sync"
)

// Locker сериализует операции по ключу (идентификатору ресурса).
type Locker interface {
	// Lock блокирует ключ до вызова unlock или возвращает ошибку при отмене ctx.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// KeyedLocker — in-process Locker: одна критическая секция на ключ.
// Записи удаляются, когда ключ больше никто не ждёт.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker создаёт in-process Locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedLock)}
}

// Lock ожидает освобождения ключа или отмены ctx.
func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(key, entry)
		})
	}, nil
}

// Len возвращает число ключей, которые сейчас удерживаются или ожидаются.
func (l *KeyedLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *KeyedLocker) release(key string, entry *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

var _ Locker = (*KeyedLocker)(nil)
