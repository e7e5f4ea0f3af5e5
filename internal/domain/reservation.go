package domain

import "time"

// ReservationStatus описывает жизненный цикл бронирования.
type ReservationStatus string

const (
	// ReservationStatusPending — бронирование ожидает ручной проверки администратором.
	ReservationStatusPending ReservationStatus = "pending"
	// ReservationStatusApproved — бронирование подтверждено (автоматически или вручную).
	ReservationStatusApproved ReservationStatus = "approved"
	// ReservationStatusRejected — бронирование отклонено администратором.
	ReservationStatusRejected ReservationStatus = "rejected"
	// ReservationStatusCancelled — бронирование отменено.
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending: {
		ReservationStatusApproved,
		ReservationStatusRejected,
		ReservationStatusCancelled,
	},
	ReservationStatusApproved: {
		ReservationStatusCancelled,
	},
}

// Valid сообщает, известен ли статус.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusApproved, ReservationStatusRejected, ReservationStatusCancelled:
		return true
	}
	return false
}

// Terminal возвращает true для статусов без исходящих переходов.
func (s ReservationStatus) Terminal() bool {
	return len(reservationTransitions[s]) == 0
}

// Live возвращает true, пока бронирование удерживает ресурс.
func (s ReservationStatus) Live() bool {
	return s == ReservationStatusPending || s == ReservationStatusApproved
}

// CanTransitionTo проверяет допустимость перехода в next.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reservation описывает заявку на использование ресурса в интервале времени.
type Reservation struct {
	ID           string
	ResourceID   string
	ResourceType ResourceType
	RequesterID  string
	StartTime    time.Time
	EndTime      time.Time
	Status       ReservationStatus
	Purpose      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Duration возвращает длительность бронирования.
func (r *Reservation) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Overlaps сообщает, пересекается ли интервал бронирования с [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && start.Before(r.EndTime)
}

// Validate проверяет ключевые поля бронирования.
func (r *Reservation) Validate() []error {
	var errs []error

	if r.ResourceID == "" {
		errs = append(errs, ErrResourceIDRequired)
	}
	if !r.ResourceType.Valid() {
		errs = append(errs, ErrResourceTypeInvalid)
	}
	if r.RequesterID == "" {
		errs = append(errs, ErrRequesterRequired)
	}
	if !r.StartTime.Before(r.EndTime) {
		errs = append(errs, ErrTimeRangeInvalid)
	}
	if !r.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}

	return errs
}

// ReservationFilter задаёт критерии выборки бронирований. Пустые поля не ограничивают выборку.
type ReservationFilter struct {
	RequesterID  string
	ResourceID   string
	ResourceType ResourceType
	Statuses     []ReservationStatus
	// From и To ограничивают выборку бронированиями, пересекающими [From, To).
	From time.Time
	To   time.Time
}

// Match проверяет, подходит ли бронирование под фильтр.
func (f ReservationFilter) Match(r Reservation) bool {
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.ResourceID != "" && r.ResourceID != f.ResourceID {
		return false
	}
	if f.ResourceType != "" && r.ResourceType != f.ResourceType {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, status := range f.Statuses {
			if r.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && !r.EndTime.After(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.StartTime.Before(f.To) {
		return false
	}
	return true
}
