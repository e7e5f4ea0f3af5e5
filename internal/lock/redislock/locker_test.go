package redislock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func fixedToken() string { return "token-1" }

func TestLockAndUnlock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := New(client, WithTokenGenerator(fixedToken), WithTTL(time.Second))

	mock.ExpectSetNX("booking:lock:room-a", "token-1", time.Second).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"booking:lock:room-a"}, "token-1").SetVal(int64(1))

	unlock, err := locker.Lock(context.Background(), "room-a")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	unlock()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLockRetriesUntilFree(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := New(client,
		WithTokenGenerator(fixedToken),
		WithTTL(time.Second),
		WithRetryDelay(time.Millisecond),
		WithPrefix("test:"),
	)

	mock.ExpectSetNX("test:car-1", "token-1", time.Second).SetVal(false)
	mock.ExpectSetNX("test:car-1", "token-1", time.Second).SetVal(false)
	mock.ExpectSetNX("test:car-1", "token-1", time.Second).SetVal(true)

	if _, err := locker.Lock(context.Background(), "car-1"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLockHonoursContext(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := New(client, WithTokenGenerator(fixedToken), WithTTL(time.Second), WithRetryDelay(50*time.Millisecond))

	mock.ExpectSetNX("booking:lock:room-a", "token-1", time.Second).SetVal(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "room-a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLockRedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := New(client, WithTokenGenerator(fixedToken), WithTTL(time.Second))

	mock.ExpectSetNX("booking:lock:room-a", "token-1", time.Second).SetErr(errors.New("connection refused"))

	if _, err := locker.Lock(context.Background(), "room-a"); err == nil {
		t.Fatal("expected redis error")
	}
}

func TestReleaseDetectsLostLock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := New(client, WithTTL(time.Second))

	mock.ExpectEval(unlockScript, []string{"booking:lock:room-a"}, "stale").SetVal(int64(0))

	if err := locker.release("booking:lock:room-a", "stale"); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected lost lock, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
