package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

// EventType определяет тип события уведомления.
type EventType string

const (
	EventTypeReservationCreated   EventType = "reservation.create"
	EventTypeReservationUpdated   EventType = "reservation.update"
	EventTypeReservationCancelled EventType = "reservation.cancel"
	EventTypeReservationApproved  EventType = "reservation.approve"
	EventTypeReservationRejected  EventType = "reservation.reject"
)

// Topics для Kafka
const (
	TopicNotifications   = "booking.notifications"
	TopicDeadLetterQueue = "booking.notifications.dlq"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// EventTypeFor возвращает тип события для действия над бронированием.
func EventTypeFor(action domain.AuditAction) EventType {
	return EventType("reservation." + string(action))
}

// Envelope — обёртка, в которой outbox-сообщение уходит в Kafka.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope упаковывает outbox-сообщение.
func NewEnvelope(msg domain.OutboxMessage, publishedAt time.Time) Envelope {
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     EventType(msg.EventType),
		Payload:       json.RawMessage(msg.Payload),
		PublishedAt:   publishedAt,
	}
}

// ParseNotification извлекает уведомление из сообщения топика уведомлений.
func ParseNotification(message *sarama.ConsumerMessage) (domain.Notification, error) {
	var envelope Envelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return domain.Notification{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if len(envelope.Payload) == 0 {
		return domain.Notification{}, fmt.Errorf("envelope %s has empty payload", envelope.ID)
	}

	var notification domain.Notification
	if err := json.Unmarshal(envelope.Payload, &notification); err != nil {
		return domain.Notification{}, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	if notification.RecipientID == "" {
		notification.RecipientID = envelope.AggregateID
	}
	return notification, nil
}
