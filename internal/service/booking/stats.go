package booking

import (
	"context"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

// Stats — агрегаты по бронированиям.
type Stats struct {
	Total    int
	ByType   map[domain.ResourceType]int
	ByStatus map[domain.ReservationStatus]int
	// ByTypeAndStatus нужен для экспорта в метрики.
	ByTypeAndStatus map[domain.ResourceType]map[domain.ReservationStatus]int
}

// Stats считает бронирования по типу ресурса и по статусу.
func (c *Coordinator) Stats(ctx context.Context) (Stats, error) {
	reservations, err := c.reservations.List(ctx, domain.ReservationFilter{})
	if err != nil {
		return Stats{}, domain.NewOperationError("list reservations", err)
	}
	return computeStats(reservations), nil
}

func computeStats(reservations []domain.Reservation) Stats {
	stats := Stats{
		Total:           len(reservations),
		ByType:          make(map[domain.ResourceType]int),
		ByStatus:        make(map[domain.ReservationStatus]int),
		ByTypeAndStatus: make(map[domain.ResourceType]map[domain.ReservationStatus]int),
	}
	for _, r := range reservations {
		stats.ByType[r.ResourceType]++
		stats.ByStatus[r.Status]++
		byStatus, ok := stats.ByTypeAndStatus[r.ResourceType]
		if !ok {
			byStatus = make(map[domain.ReservationStatus]int)
			stats.ByTypeAndStatus[r.ResourceType] = byStatus
		}
		byStatus[r.Status]++
	}
	return stats
}
