package policy

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

const hoursPerDay = 24

// Request — кандидат на бронирование, который проверяет Engine.
type Request struct {
	ResourceType domain.ResourceType
	RequesterID  string
	StartTime    time.Time
	EndTime      time.Time
}

// Check проверяет входные ограничения запроса до применения правил.
func (r Request) Check() error {
	if !r.ResourceType.Valid() {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, domain.ErrResourceTypeInvalid)
	}
	if !r.StartTime.Before(r.EndTime) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, domain.ErrTimeRangeInvalid)
	}
	return nil
}

// Usage описывает действующие (pending/approved) бронирования автора запроса.
type Usage struct {
	ActiveByType map[domain.ResourceType]int
}

// ActiveIn возвращает число действующих бронирований в области правила.
func (u Usage) ActiveIn(scope domain.RuleScope) int {
	if scope != domain.RuleScopeAll {
		return u.ActiveByType[domain.ResourceType(scope)]
	}
	total := 0
	for _, n := range u.ActiveByType {
		total += n
	}
	return total
}

// Result — итог проверки запроса.
type Result struct {
	Valid     bool
	Violation *domain.ValidationError
}

// Err возвращает нарушение как error или nil для допустимого запроса.
func (r Result) Err() error {
	if r.Valid || r.Violation == nil {
		return nil
	}
	return r.Violation
}

// Option настраивает Engine.
type Option func(*Engine)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine проверяет бронирование на соответствие применимым правилам.
// Проверка чистая: зависит только от аргументов и текущего времени.
type Engine struct {
	now func() time.Time
}

// NewEngine создаёт движок валидации.
func NewEngine(options ...Option) *Engine {
	e := &Engine{now: func() time.Time { return time.Now().UTC() }}
	for _, option := range options {
		option(e)
	}
	return e
}

// Validate применяет активные правила к запросу в порядке хранения.
// Возвращается первое найденное нарушение.
func (e *Engine) Validate(req Request, rules domain.RuleSet, usage Usage) (Result, error) {
	if err := req.Check(); err != nil {
		return Result{}, err
	}

	now := e.now()
	durationHours := req.EndTime.Sub(req.StartTime).Hours()
	daysInAdvance := req.StartTime.Sub(now).Hours() / hoursPerDay

	for _, rule := range rules.Applicable(req.ResourceType) {
		if v := checkRule(rule, req, durationHours, daysInAdvance, usage); v != nil {
			return Result{Violation: v}, nil
		}
	}

	return Result{Valid: true}, nil
}

func checkRule(rule domain.ValidationRule, req Request, durationHours, daysInAdvance float64, usage Usage) *domain.ValidationError {
	c := rule.Conditions

	if c.MaxDurationHours != nil && durationHours > *c.MaxDurationHours {
		return violation(rule, domain.ReasonDurationExceeded,
			"reservation lasts %.2fh, maximum is %.2fh", durationHours, *c.MaxDurationHours)
	}

	if c.MaxAdvanceDays != nil && daysInAdvance > *c.MaxAdvanceDays {
		return violation(rule, domain.ReasonAdvanceTooLate,
			"reservation starts %.2f days ahead, maximum is %.2f", daysInAdvance, *c.MaxAdvanceDays)
	}
	if c.MinAdvanceDays != nil && daysInAdvance < *c.MinAdvanceDays {
		return violation(rule, domain.ReasonAdvanceTooEarly,
			"reservation starts %.2f days ahead, minimum is %.2f", daysInAdvance, *c.MinAdvanceDays)
	}

	for _, day := range c.BlackoutDates {
		dayStart := truncateDay(day)
		if req.StartTime.Before(dayStart.Add(hoursPerDay*time.Hour)) && dayStart.Before(req.EndTime) {
			return violation(rule, domain.ReasonBlackoutDate,
				"reservation intersects blackout date %s", dayStart.Format("2006-01-02"))
		}
	}

	if c.MaxActiveReservations != nil {
		if active := usage.ActiveIn(rule.AppliesTo); active >= *c.MaxActiveReservations {
			return violation(rule, domain.ReasonActiveLimitExceeded,
				"requester already holds %d active reservations, maximum is %d", active, *c.MaxActiveReservations)
		}
	}

	return nil
}

func violation(rule domain.ValidationRule, reason domain.ValidationReason, format string, args ...any) *domain.ValidationError {
	return &domain.ValidationError{
		Reason:   reason,
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Message:  fmt.Sprintf(format, args...),
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
