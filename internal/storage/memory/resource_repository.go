package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

// resourceRepositoryInMemory — in-memory реализация ResourceStore.
type resourceRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Resource
}

// NewResourceRepository возвращает in-memory хранилище ресурсов для разработки и тестов.
func NewResourceRepository() domain.ResourceStore {
	return &resourceRepositoryInMemory{items: make(map[string]domain.Resource)}
}

// Add сохраняет ресурс, если ID ещё не занят.
func (r *resourceRepositoryInMemory) Add(_ context.Context, resource domain.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[resource.ID]; exists {
		return domain.ErrAlreadyExists
	}
	now := time.Now().UTC()
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = now
	}
	resource.UpdatedAt = now
	r.items[resource.ID] = resource
	return nil
}

// Get возвращает ресурс или ErrResourceNotFound.
func (r *resourceRepositoryInMemory) Get(_ context.Context, id string) (domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resource, ok := r.items[id]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return resource, nil
}

// List возвращает ресурсы указанного типа (или все при пустом типе), упорядоченные по ID.
func (r *resourceRepositoryInMemory) List(_ context.Context, resourceType domain.ResourceType) ([]domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Resource, 0, len(r.items))
	for _, resource := range r.items {
		if resourceType != "" && resource.Type != resourceType {
			continue
		}
		result = append(result, resource)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SetAvailability меняет флаг доступности ресурса.
func (r *resourceRepositoryInMemory) SetAvailability(_ context.Context, id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resource, ok := r.items[id]
	if !ok {
		return domain.ErrResourceNotFound
	}
	resource.IsAvailable = available
	resource.UpdatedAt = time.Now().UTC()
	r.items[id] = resource
	return nil
}

var _ domain.ResourceStore = (*resourceRepositoryInMemory)(nil)
