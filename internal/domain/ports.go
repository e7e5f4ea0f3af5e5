package domain

import (
	"context"
	"time"
)

// RuleRepository хранит политики допустимости бронирований.
type RuleRepository interface {
	// List возвращает правила в порядке хранения.
	List(ctx context.Context) ([]ValidationRule, error)
	Add(ctx context.Context, rule ValidationRule) (ValidationRule, error)
	// Update заменяет правило целиком или возвращает ErrRuleNotFound.
	Update(ctx context.Context, rule ValidationRule) error
}

// ResourceStore хранит комнаты и автомобили.
type ResourceStore interface {
	Get(ctx context.Context, id string) (Resource, error)
	List(ctx context.Context, resourceType ResourceType) ([]Resource, error)
	Add(ctx context.Context, resource Resource) error
	// SetAvailability меняет флаг доступности или возвращает ErrResourceNotFound.
	SetAvailability(ctx context.Context, id string, available bool) error
}

// ReservationStore хранит бронирования.
type ReservationStore interface {
	// Add сохраняет новое бронирование. Возвращает ErrAlreadyExists для занятого ID.
	Add(ctx context.Context, reservation Reservation) error
	Get(ctx context.Context, id string) (Reservation, error)
	// List возвращает бронирования по фильтру, отсортированные по времени начала.
	List(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	UpdateStatus(ctx context.Context, id string, status ReservationStatus, updatedAt time.Time) error
}

// AuditStore — append-only журнал изменений бронирований.
type AuditStore interface {
	Append(ctx context.Context, entry AuditEntry) error
	// List возвращает все записи, новые первыми.
	List(ctx context.Context) ([]AuditEntry, error)
	// ListByReservation возвращает записи бронирования в порядке записи.
	ListByReservation(ctx context.Context, reservationID string) ([]AuditEntry, error)
}

// IdentityContext определяет, от чьего имени выполняется операция.
type IdentityContext interface {
	CurrentActor(ctx context.Context) (Actor, error)
}

// Notifier — fire-and-forget канал уведомлений пользователей.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPruner удаляет обработанные сообщения outbox, обновлённые не позже before.
// Возвращает число удалённых записей, не больше limit.
type OutboxPruner interface {
	DeleteProcessed(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
