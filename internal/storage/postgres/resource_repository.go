package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

const resourceColumns = `id, type, name, is_available, capacity, license_plate, seats, created_at, updated_at`

type resourceRepository struct {
	db *sql.DB
}

// NewResourceRepository создаёт PostgreSQL-реализацию ResourceStore.
func NewResourceRepository(store *Store) domain.ResourceStore {
	return &resourceRepository{db: store.DB()}
}

func (r *resourceRepository) Add(ctx context.Context, resource domain.Resource) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = now
	}
	resource.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		resource.ID, string(resource.Type), resource.Name, resource.IsAvailable,
		resource.Capacity, resource.LicensePlate, resource.Seats, resource.CreatedAt, resource.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("resource %s: %w", resource.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func (r *resourceRepository) Get(ctx context.Context, id string) (domain.Resource, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	resource, err := scanResource(r.db.QueryRowContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("select resource: %w", err)
	}
	return resource, nil
}

func (r *resourceRepository) List(ctx context.Context, resourceType domain.ResourceType) ([]domain.Resource, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE $1 = '' OR type = $1
		ORDER BY id
	`, string(resourceType))
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	resources := make([]domain.Resource, 0)
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource row: %w", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resource rows: %w", err)
	}
	return resources, nil
}

func (r *resourceRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE resources
		SET is_available = $2,
		    updated_at = $3
		WHERE id = $1
	`, id, available, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update resource availability: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}

// rowScanner — общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (domain.Resource, error) {
	var (
		resource     domain.Resource
		resourceType string
	)
	if err := row.Scan(
		&resource.ID, &resourceType, &resource.Name, &resource.IsAvailable,
		&resource.Capacity, &resource.LicensePlate, &resource.Seats, &resource.CreatedAt, &resource.UpdatedAt,
	); err != nil {
		return domain.Resource{}, err
	}
	resource.Type = domain.ResourceType(resourceType)
	return resource, nil
}

var _ domain.ResourceStore = (*resourceRepository)(nil)
