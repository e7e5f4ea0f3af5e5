package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

const reservationColumns = `id, resource_id, resource_type, requester_id, start_time, end_time, status, purpose, created_at, updated_at`

type reservationRepository struct {
	db *sql.DB
}

// NewReservationRepository создаёт PostgreSQL-реализацию ReservationStore.
func NewReservationRepository(store *Store) domain.ReservationStore {
	return &reservationRepository{db: store.DB()}
}

func (r *reservationRepository) Add(ctx context.Context, reservation domain.Reservation) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		reservation.ID, reservation.ResourceID, string(reservation.ResourceType), reservation.RequesterID,
		reservation.StartTime, reservation.EndTime, string(reservation.Status), reservation.Purpose,
		reservation.CreatedAt, reservation.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reservation %s: %w", reservation.ID, domain.ErrAlreadyExists)
		}
		if isForeignKeyViolation(err) {
			return domain.ErrResourceNotFound
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *reservationRepository) Get(ctx context.Context, id string) (domain.Reservation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	reservation, err := scanReservation(r.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("select reservation: %w", err)
	}
	return reservation, nil
}

func (r *reservationRepository) List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args := buildReservationFilter(filter)
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]domain.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}
	return reservations, nil
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus, updatedAt time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $2,
		    updated_at = $3
		WHERE id = $1
	`, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// buildReservationFilter переводит фильтр в WHERE с позиционными параметрами.
func buildReservationFilter(filter domain.ReservationFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.RequesterID != "" {
		add("requester_id = $%d", filter.RequesterID)
	}
	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", string(filter.ResourceType))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conds = append(conds, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !filter.From.IsZero() {
		add("end_time > $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("start_time < $%d", filter.To)
	}

	return strings.Join(conds, " AND "), args
}

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var (
		reservation  domain.Reservation
		resourceType string
		status       string
	)
	if err := row.Scan(
		&reservation.ID, &reservation.ResourceID, &resourceType, &reservation.RequesterID,
		&reservation.StartTime, &reservation.EndTime, &status, &reservation.Purpose,
		&reservation.CreatedAt, &reservation.UpdatedAt,
	); err != nil {
		return domain.Reservation{}, err
	}
	reservation.ResourceType = domain.ResourceType(resourceType)
	reservation.Status = domain.ReservationStatus(status)
	reservation.StartTime = reservation.StartTime.UTC()
	reservation.EndTime = reservation.EndTime.UTC()
	return reservation, nil
}

var _ domain.ReservationStore = (*reservationRepository)(nil)
