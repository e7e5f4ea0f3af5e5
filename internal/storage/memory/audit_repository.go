package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

// auditRepositoryInMemory хранит журнал в порядке записи.
type auditRepositoryInMemory struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewAuditRepository создаёт in-memory реализацию AuditStore.
func NewAuditRepository() domain.AuditStore {
	return &auditRepositoryInMemory{}
}

// Append добавляет запись в конец журнала.
func (r *auditRepositoryInMemory) Append(_ context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	r.entries = append(r.entries, entry)
	return nil
}

// List возвращает все записи, новые первыми; при равных временах позже записанные идут раньше.
func (r *auditRepositoryInMemory) List(_ context.Context) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.AuditEntry, len(r.entries))
	for i := range r.entries {
		result[i] = r.entries[len(r.entries)-1-i]
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result, nil
}

// ListByReservation возвращает записи бронирования в порядке записи.
func (r *auditRepositoryInMemory) ListByReservation(_ context.Context, reservationID string) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.AuditEntry, 0)
	for _, entry := range r.entries {
		if entry.ReservationID == reservationID {
			result = append(result, entry)
		}
	}
	return result, nil
}

var _ domain.AuditStore = (*auditRepositoryInMemory)(nil)
