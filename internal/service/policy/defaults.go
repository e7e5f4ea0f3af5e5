package policy

import "github.com/vladislavdragonenkov/booking/internal/domain"

// DefaultRules возвращает стартовый набор правил для пустого хранилища.
func DefaultRules() []domain.ValidationRule {
	return []domain.ValidationRule{
		{
			ID:        "default-room",
			Name:      "Room booking policy",
			AppliesTo: domain.RuleScopeRoom,
			Conditions: domain.RuleConditions{
				MaxDurationHours:      domain.Float64(8),
				MaxAdvanceDays:        domain.Float64(30),
				MinAdvanceDays:        domain.Float64(1),
				MaxActiveReservations: domain.Int(3),
				RequiresAdminApproval: domain.Bool(false),
			},
			IsActive: true,
		},
		{
			ID:        "default-vehicle",
			Name:      "Vehicle booking policy",
			AppliesTo: domain.RuleScopeVehicle,
			Conditions: domain.RuleConditions{
				MaxDurationHours:      domain.Float64(24),
				MaxAdvanceDays:        domain.Float64(14),
				MinAdvanceDays:        domain.Float64(2),
				MaxActiveReservations: domain.Int(1),
				RequiresAdminApproval: domain.Bool(true),
			},
			IsActive: true,
		},
	}
}

// ValidateRule проверяет правило перед сохранением.
func ValidateRule(rule domain.ValidationRule) []error {
	var errs []error
	if rule.Name == "" {
		errs = append(errs, domain.ErrRuleNameRequired)
	}
	if !rule.AppliesTo.Valid() {
		errs = append(errs, domain.ErrRuleScopeInvalid)
	}
	return errs
}
