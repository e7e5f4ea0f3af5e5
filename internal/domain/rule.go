package domain

import "time"

// RuleScope задаёт, к каким типам ресурсов применяется правило.
type RuleScope string

const (
	RuleScopeRoom    RuleScope = RuleScope(ResourceTypeRoom)
	RuleScopeVehicle RuleScope = RuleScope(ResourceTypeVehicle)
	// RuleScopeAll — правило действует для всех типов ресурсов.
	RuleScopeAll RuleScope = "all"
)

// Valid сообщает, известна ли область действия правила.
func (s RuleScope) Valid() bool {
	return s == RuleScopeRoom || s == RuleScopeVehicle || s == RuleScopeAll
}

// Covers проверяет, распространяется ли область на тип ресурса.
func (s RuleScope) Covers(t ResourceType) bool {
	return s == RuleScopeAll || s == RuleScope(t)
}

// RuleConditions — набор независимых опциональных ограничений правила.
// nil означает отсутствие ограничения.
type RuleConditions struct {
	MaxDurationHours      *float64 `json:"max_duration_hours,omitempty"`
	MinAdvanceDays        *float64 `json:"min_advance_days,omitempty"`
	MaxAdvanceDays        *float64 `json:"max_advance_days,omitempty"`
	MaxActiveReservations *int     `json:"max_active_reservations,omitempty"`
	RequiresAdminApproval *bool    `json:"requires_admin_approval,omitempty"`
	// BlackoutDates — календарные дни (UTC), на которые бронирование запрещено.
	BlackoutDates []time.Time `json:"blackout_dates,omitempty"`
}

// NeedsAdminApproval возвращает true, если правило требует ручного подтверждения.
func (c RuleConditions) NeedsAdminApproval() bool {
	return c.RequiresAdminApproval != nil && *c.RequiresAdminApproval
}

// ValidationRule описывает политику допустимости бронирований.
type ValidationRule struct {
	ID         string
	Name       string
	AppliesTo  RuleScope
	Conditions RuleConditions
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AppliesToType проверяет, что правило активно и относится к типу ресурса.
func (r ValidationRule) AppliesToType(t ResourceType) bool {
	return r.IsActive && r.AppliesTo.Covers(t)
}

// RuleSet — снимок правил, неизменяемый в рамках одной проверки.
type RuleSet []ValidationRule

// Applicable возвращает активные правила для типа ресурса в порядке хранения.
func (s RuleSet) Applicable(t ResourceType) RuleSet {
	result := make(RuleSet, 0, len(s))
	for _, rule := range s {
		if rule.AppliesToType(t) {
			result = append(result, rule)
		}
	}
	return result
}

// LimitsActive сообщает, ограничивает ли хотя бы одно применимое правило
// число активных бронирований заявителя.
func (s RuleSet) LimitsActive(t ResourceType) bool {
	for _, rule := range s.Applicable(t) {
		if rule.Conditions.MaxActiveReservations != nil {
			return true
		}
	}
	return false
}

// Float64 возвращает указатель на v; удобно для заполнения RuleConditions.
func Float64(v float64) *float64 { return &v }

// Int возвращает указатель на v.
func Int(v int) *int { return &v }

// Bool возвращает указатель на v.
func Bool(v bool) *bool { return &v }
