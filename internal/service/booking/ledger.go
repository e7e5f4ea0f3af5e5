package booking

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

// Ledger ведёт флаг доступности ресурса.
// Ресурс доступен, пока на него нет ни одного действующего (pending/approved) бронирования.
// Вызывающий код обязан удерживать блокировку ресурса.
type Ledger struct {
	resources    domain.ResourceStore
	reservations domain.ReservationStore
}

// NewLedger создаёт Ledger поверх хранилищ ресурсов и бронирований.
func NewLedger(resources domain.ResourceStore, reservations domain.ReservationStore) *Ledger {
	return &Ledger{resources: resources, reservations: reservations}
}

// Hold помечает ресурс занятым.
func (l *Ledger) Hold(ctx context.Context, resourceID string) error {
	if err := l.resources.SetAvailability(ctx, resourceID, false); err != nil {
		return fmt.Errorf("hold resource %s: %w", resourceID, err)
	}
	return nil
}

// Release возвращает ресурсу доступность, если его больше не удерживает ни одно бронирование.
// Возвращает итоговое значение флага.
func (l *Ledger) Release(ctx context.Context, resourceID string) (bool, error) {
	live, err := l.LiveReservations(ctx, resourceID)
	if err != nil {
		return false, err
	}
	if len(live) > 0 {
		return false, nil
	}
	if err := l.resources.SetAvailability(ctx, resourceID, true); err != nil {
		return false, fmt.Errorf("release resource %s: %w", resourceID, err)
	}
	return true, nil
}

// LiveReservations возвращает действующие бронирования ресурса.
func (l *Ledger) LiveReservations(ctx context.Context, resourceID string) ([]domain.Reservation, error) {
	live, err := l.reservations.List(ctx, domain.ReservationFilter{
		ResourceID: resourceID,
		Statuses:   []domain.ReservationStatus{domain.ReservationStatusPending, domain.ReservationStatusApproved},
	})
	if err != nil {
		return nil, fmt.Errorf("list live reservations for %s: %w", resourceID, err)
	}
	return live, nil
}

// IsAvailable возвращает текущее значение флага.
func (l *Ledger) IsAvailable(ctx context.Context, resourceID string) (bool, error) {
	resource, err := l.resources.Get(ctx, resourceID)
	if err != nil {
		return false, err
	}
	return resource.IsAvailable, nil
}
