package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository создаёт PostgreSQL-реализацию AuditStore.
// Порядок записи фиксирует колонка seq.
func NewAuditRepository(store *Store) domain.AuditStore {
	return &auditRepository{db: store.DB()}
}

func (r *auditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, reservation_id, actor_id, action, detail, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, entry.ID, entry.ReservationID, entry.ActorID, string(entry.Action), entry.Detail, entry.Timestamp); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context) ([]domain.AuditEntry, error) {
	return r.query(ctx, `
		SELECT id, reservation_id, actor_id, action, detail, occurred_at
		FROM audit_entries
		ORDER BY occurred_at DESC, seq DESC
	`)
}

func (r *auditRepository) ListByReservation(ctx context.Context, reservationID string) ([]domain.AuditEntry, error) {
	return r.query(ctx, `
		SELECT id, reservation_id, actor_id, action, detail, occurred_at
		FROM audit_entries
		WHERE reservation_id = $1
		ORDER BY seq ASC
	`, reservationID)
}

func (r *auditRepository) query(ctx context.Context, query string, args ...any) ([]domain.AuditEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			entry  domain.AuditEntry
			action string
		)
		if err := rows.Scan(&entry.ID, &entry.ReservationID, &entry.ActorID, &action, &entry.Detail, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = domain.AuditAction(action)
		entry.Timestamp = entry.Timestamp.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

var _ domain.AuditStore = (*auditRepository)(nil)
