package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/booking/internal/domain"
	"github.com/vladislavdragonenkov/booking/internal/metrics"
)

// AuditLog записывает изменения бронирований в AuditStore.
type AuditLog struct {
	store   domain.AuditStore
	metrics *metrics.BookingMetrics
	now     func() time.Time
}

// NewAuditLog создаёт журнал поверх хранилища. metrics может быть nil.
func NewAuditLog(store domain.AuditStore, m *metrics.BookingMetrics, now func() time.Time) *AuditLog {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AuditLog{store: store, metrics: m, now: now}
}

// Record добавляет запись о действии над бронированием.
func (a *AuditLog) Record(ctx context.Context, reservationID, actorID string, action domain.AuditAction, detail string) (domain.AuditEntry, error) {
	entry := domain.AuditEntry{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		ActorID:       actorID,
		Action:        action,
		Timestamp:     a.now(),
		Detail:        detail,
	}
	if err := a.store.Append(ctx, entry); err != nil {
		return domain.AuditEntry{}, fmt.Errorf("append audit entry (%s %s): %w", action, reservationID, err)
	}
	if a.metrics != nil {
		a.metrics.RecordAuditEntry()
	}
	return entry, nil
}

// History возвращает записи одного бронирования в порядке записи.
func (a *AuditLog) History(ctx context.Context, reservationID string) ([]domain.AuditEntry, error) {
	return a.store.ListByReservation(ctx, reservationID)
}

// Recent возвращает весь журнал, новые записи первыми.
func (a *AuditLog) Recent(ctx context.Context) ([]domain.AuditEntry, error) {
	return a.store.List(ctx)
}
