package domain

import "time"

// AuditAction перечисляет действия, фиксируемые в журнале.
type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionCancel  AuditAction = "cancel"
	AuditActionApprove AuditAction = "approve"
	AuditActionReject  AuditAction = "reject"
)

// AuditEntry — неизменяемая запись об одном изменении бронирования.
type AuditEntry struct {
	ID            string
	ReservationID string
	ActorID       string
	Action        AuditAction
	Timestamp     time.Time
	Detail        string
}

// Actor описывает текущего пользователя и его привилегии.
type Actor struct {
	ID      string
	IsAdmin bool
}
