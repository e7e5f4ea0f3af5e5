package notification

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

// AggregateType — тип агрегата outbox-сообщений с уведомлениями.
const AggregateType = "notification"

// OutboxNotifier ставит уведомления в transactional outbox; доставку выполняет outbox worker.
type OutboxNotifier struct {
	repo   domain.OutboxRepository
	logger *log.Entry
}

// NewOutboxNotifier создаёт Notifier поверх outbox.
func NewOutboxNotifier(repo domain.OutboxRepository, logger *log.Entry) *OutboxNotifier {
	if logger == nil {
		logger = log.WithField("component", "notifier")
	}
	return &OutboxNotifier{repo: repo, logger: logger}
}

// Notify сериализует уведомление и кладёт его в outbox с ключом получателя.
func (n *OutboxNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if notification.RecipientID == "" {
		return fmt.Errorf("%w: notification recipient is empty", domain.ErrInvalidRequest)
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg, err := n.repo.Enqueue(domain.OutboxMessage{
		AggregateType: AggregateType,
		AggregateID:   notification.RecipientID,
		EventType:     "reservation." + string(notification.Action),
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	n.logger.WithFields(log.Fields{
		"outbox_id":      msg.ID,
		"recipient_id":   notification.RecipientID,
		"reservation_id": notification.ReservationID,
	}).Debug("notification queued")
	return nil
}

var _ domain.Notifier = (*OutboxNotifier)(nil)
