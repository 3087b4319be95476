package customer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local development.
type MemoryRepository struct {
	mu        sync.RWMutex
	customers map[string]Customer
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{customers: make(map[string]Customer)}
}

// Create stores a new customer under a fresh UUID.
func (r *MemoryRepository) Create(ctx context.Context, c *Customer) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := *c
	created.ID = uuid.NewString()
	created.IsActive = true
	created.CreatedAt = now
	created.UpdatedAt = now
	r.customers[created.ID] = created
	return &created, nil
}

// GetByID returns an active customer by ID.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok || !c.IsActive {
		return nil, ErrNotFound
	}
	return &c, nil
}

// List returns active customers ordered by creation time.
func (r *MemoryRepository) List(ctx context.Context) ([]Customer, error) {
	return r.list(false), nil
}

// ListAll returns every customer, including deactivated records.
func (r *MemoryRepository) ListAll(ctx context.Context) ([]Customer, error) {
	return r.list(true), nil
}

func (r *MemoryRepository) list(includeInactive bool) []Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customers := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		if !c.IsActive && !includeInactive {
			continue
		}
		customers = append(customers, c)
	}
	for i := 1; i < len(customers); i++ {
		for j := i; j > 0 && customers[j].CreatedAt.Before(customers[j-1].CreatedAt); j-- {
			customers[j], customers[j-1] = customers[j-1], customers[j]
		}
	}
	return customers
}

// Update persists mutable fields of an active customer.
func (r *MemoryRepository) Update(ctx context.Context, c *Customer) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.customers[c.ID]
	if !ok || !existing.IsActive {
		return nil, ErrNotFound
	}

	existing.Name = c.Name
	existing.Surname = c.Surname
	existing.PhotoKey = c.PhotoKey
	existing.UpdatedBy = c.UpdatedBy
	existing.UpdatedAt = time.Now().UTC()
	r.customers[c.ID] = existing
	return &existing, nil
}

// Deactivate clears the active flag; the record stays persisted.
func (r *MemoryRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.customers[id]
	if !ok || !c.IsActive {
		return ErrNotFound
	}
	c.IsActive = false
	r.customers[id] = c
	return nil
}
