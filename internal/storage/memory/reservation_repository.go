package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

// reservationRepositoryInMemory — in-memory реализация ReservationStore.
type reservationRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Reservation
}

// NewReservationRepository возвращает in-memory хранилище бронирований.
func NewReservationRepository() domain.ReservationStore {
	return &reservationRepositoryInMemory{items: make(map[string]domain.Reservation)}
}

// Add сохраняет новое бронирование, если ID ещё не занят.
func (r *reservationRepositoryInMemory) Add(_ context.Context, reservation domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[reservation.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.items[reservation.ID] = reservation
	return nil
}

// Get возвращает бронирование или ErrReservationNotFound.
func (r *reservationRepositoryInMemory) Get(_ context.Context, id string) (domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reservation, ok := r.items[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return reservation, nil
}

// List возвращает бронирования по фильтру, упорядоченные по времени начала.
func (r *reservationRepositoryInMemory) List(_ context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Reservation, 0, len(r.items))
	for _, reservation := range r.items {
		if filter.Match(reservation) {
			result = append(result, reservation)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.Before(result[j].StartTime)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// UpdateStatus перезаписывает статус бронирования.
func (r *reservationRepositoryInMemory) UpdateStatus(_ context.Context, id string, status domain.ReservationStatus, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reservation, ok := r.items[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	reservation.Status = status
	reservation.UpdatedAt = updatedAt
	r.items[id] = reservation
	return nil
}

var _ domain.ReservationStore = (*reservationRepositoryInMemory)(nil)
