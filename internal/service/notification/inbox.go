package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

const defaultInboxCapacity = 100

// Inbox хранит последние уведомления каждого пользователя.
// Работает как publisher для outbox worker без Kafka и как получатель для Kafka consumer.
type Inbox struct {
	mu       sync.RWMutex
	capacity int
	messages map[string][]domain.Notification
}

// NewInbox создаёт Inbox, хранящий не более capacity уведомлений на пользователя.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = defaultInboxCapacity
	}
	return &Inbox{capacity: capacity, messages: make(map[string][]domain.Notification)}
}

// Deliver добавляет уведомление в ящик получателя, вытесняя самые старые.
func (i *Inbox) Deliver(_ context.Context, notification domain.Notification) error {
	if notification.RecipientID == "" {
		return fmt.Errorf("%w: notification recipient is empty", domain.ErrInvalidRequest)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	box := append(i.messages[notification.RecipientID], notification)
	if len(box) > i.capacity {
		box = append([]domain.Notification(nil), box[len(box)-i.capacity:]...)
	}
	i.messages[notification.RecipientID] = box
	return nil
}

// Publish разбирает outbox-сообщение с уведомлением и доставляет его.
func (i *Inbox) Publish(event domain.OutboxMessage) error {
	var notification domain.Notification
	if err := json.Unmarshal(event.Payload, &notification); err != nil {
		return fmt.Errorf("decode notification %s: %w", event.ID, err)
	}
	if notification.RecipientID == "" {
		notification.RecipientID = event.AggregateID
	}
	return i.Deliver(context.Background(), notification)
}

// Messages возвращает копию уведомлений пользователя, старые первыми.
func (i *Inbox) Messages(userID string) []domain.Notification {
	i.mu.RLock()
	defer i.mu.RUnlock()

	box := i.messages[userID]
	result := make([]domain.Notification, len(box))
	copy(result, box)
	return result
}

var _ domain.OutboxPublisher = (*Inbox)(nil)
