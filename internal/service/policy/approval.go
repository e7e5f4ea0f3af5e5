package policy

import "github.com/vladislavdragonenkov/booking/internal/domain"

// ApprovalDecider выбирает начальный статус бронирования.
type ApprovalDecider struct{}

// NewApprovalDecider создаёт ApprovalDecider.
func NewApprovalDecider() *ApprovalDecider {
	return &ApprovalDecider{}
}

// ShouldAutoApprove возвращает true для администратора всегда,
// для остальных — если ни одно применимое правило не требует ручного подтверждения.
func (d *ApprovalDecider) ShouldAutoApprove(req Request, requesterIsAdmin bool, rules domain.RuleSet) bool {
	if requesterIsAdmin {
		return true
	}
	for _, rule := range rules.Applicable(req.ResourceType) {
		if rule.Conditions.NeedsAdminApproval() {
			return false
		}
	}
	return true
}

// InitialStatus переводит решение об автоподтверждении в статус.
func (d *ApprovalDecider) InitialStatus(req Request, requesterIsAdmin bool, rules domain.RuleSet) domain.ReservationStatus {
	if d.ShouldAutoApprove(req, requesterIsAdmin, rules) {
		return domain.ReservationStatusApproved
	}
	return domain.ReservationStatusPending
}
