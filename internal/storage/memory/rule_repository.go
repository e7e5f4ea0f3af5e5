package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

// ruleRepositoryInMemory хранит правила в порядке добавления.
type ruleRepositoryInMemory struct {
	mu    sync.RWMutex
	rules []domain.ValidationRule
}

// NewRuleRepository создаёт in-memory реализацию RuleRepository.
func NewRuleRepository() domain.RuleRepository {
	return &ruleRepositoryInMemory{}
}

// List возвращает копии правил в порядке хранения.
func (r *ruleRepositoryInMemory) List(_ context.Context) ([]domain.ValidationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.ValidationRule, len(r.rules))
	for i, rule := range r.rules {
		result[i] = cloneRule(rule)
	}
	return result, nil
}

// Add добавляет правило в конец списка; пустой ID генерируется.
func (r *ruleRepositoryInMemory) Add(_ context.Context, rule domain.ValidationRule) (domain.ValidationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	for _, existing := range r.rules {
		if existing.ID == rule.ID {
			return domain.ValidationRule{}, domain.ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	r.rules = append(r.rules, cloneRule(rule))
	return rule, nil
}

// Update заменяет правило, сохраняя его позицию.
func (r *ruleRepositoryInMemory) Update(_ context.Context, rule domain.ValidationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.rules {
		if existing.ID != rule.ID {
			continue
		}
		rule.CreatedAt = existing.CreatedAt
		rule.UpdatedAt = time.Now().UTC()
		r.rules[i] = cloneRule(rule)
		return nil
	}
	return domain.ErrRuleNotFound
}

// cloneRule копирует указатели и срезы условий, чтобы вызывающий код не мутировал хранилище.
func cloneRule(rule domain.ValidationRule) domain.ValidationRule {
	c := rule.Conditions
	if c.MaxDurationHours != nil {
		c.MaxDurationHours = domain.Float64(*c.MaxDurationHours)
	}
	if c.MinAdvanceDays != nil {
		c.MinAdvanceDays = domain.Float64(*c.MinAdvanceDays)
	}
	if c.MaxAdvanceDays != nil {
		c.MaxAdvanceDays = domain.Float64(*c.MaxAdvanceDays)
	}
	if c.MaxActiveReservations != nil {
		c.MaxActiveReservations = domain.Int(*c.MaxActiveReservations)
	}
	if c.RequiresAdminApproval != nil {
		c.RequiresAdminApproval = domain.Bool(*c.RequiresAdminApproval)
	}
	if c.BlackoutDates != nil {
		c.BlackoutDates = append([]time.Time(nil), c.BlackoutDates...)
	}
	rule.Conditions = c
	return rule
}

var _ domain.RuleRepository = (*ruleRepositoryInMemory)(nil)
