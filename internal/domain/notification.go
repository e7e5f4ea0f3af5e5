package domain

import (
	"fmt"
	"strings"
	"time"
)

// Notification — сообщение пользователю об изменении его бронирования.
type Notification struct {
	RecipientID   string            `json:"recipient_id"`
	ReservationID string            `json:"reservation_id"`
	ResourceID    string            `json:"resource_id"`
	ResourceType  ResourceType      `json:"resource_type"`
	Action        AuditAction       `json:"action"`
	Status        ReservationStatus `json:"status"`
	StartTime     time.Time         `json:"start_time"`
	Message       string            `json:"message"`
}

// NewNotification формирует уведомление о действии над бронированием.
func NewNotification(action AuditAction, reservation Reservation) Notification {
	return Notification{
		RecipientID:   reservation.RequesterID,
		ReservationID: reservation.ID,
		ResourceID:    reservation.ResourceID,
		ResourceType:  reservation.ResourceType,
		Action:        action,
		Status:        reservation.Status,
		StartTime:     reservation.StartTime,
		Message:       notificationMessage(action, reservation),
	}
}

func notificationMessage(action AuditAction, reservation Reservation) string {
	date := reservation.StartTime.UTC().Format("2006-01-02")
	kind := string(reservation.ResourceType)
	title := kind
	if kind != "" {
		title = strings.ToUpper(kind[:1]) + kind[1:]
	}

	switch action {
	case AuditActionCreate:
		return fmt.Sprintf("New %s reservation created for %s", kind, date)
	case AuditActionUpdate:
		return fmt.Sprintf("%s reservation updated for %s", title, date)
	case AuditActionCancel:
		return fmt.Sprintf("%s reservation cancelled for %s", title, date)
	case AuditActionApprove:
		return fmt.Sprintf("%s reservation approved for %s", title, date)
	case AuditActionReject:
		return fmt.Sprintf("%s reservation rejected for %s", title, date)
	default:
		return fmt.Sprintf("%s reservation changed for %s", title, date)
	}
}
