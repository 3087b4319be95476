package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local development.
// It mirrors the PostgresRepository semantics, including the active-only
// default accessors.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]User)}
}

// Create stores a new user under a fresh UUID.
func (r *MemoryRepository) Create(ctx context.Context, u *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username {
			return nil, ErrAlreadyExists
		}
	}

	created := *u
	created.ID = uuid.NewString()
	created.IsActive = true
	created.DateJoined = time.Now().UTC()
	r.users[created.ID] = created
	return &created, nil
}

// GetByID returns an active user by ID.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok || !u.IsActive {
		return nil, ErrNotFound
	}
	return &u, nil
}

// GetByUsername returns an active user by username.
func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username && u.IsActive {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// List returns users ordered by join date.
func (r *MemoryRepository) List(ctx context.Context, includeInactive bool) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if !u.IsActive && !includeInactive {
			continue
		}
		users = append(users, u)
	}
	sortByDateJoined(users)
	return users, nil
}

// Update persists mutable fields of an active user.
func (r *MemoryRepository) Update(ctx context.Context, u *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[u.ID]
	if !ok || !existing.IsActive {
		return nil, ErrNotFound
	}
	for id, other := range r.users {
		if id != u.ID && other.Username == u.Username {
			return nil, ErrAlreadyExists
		}
	}

	existing.Username = u.Username
	existing.PasswordHash = u.PasswordHash
	existing.Email = u.Email
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.IsStaff = u.IsStaff
	r.users[u.ID] = existing
	return &existing, nil
}

// Deactivate clears the active flag; the record stays persisted.
func (r *MemoryRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || !u.IsActive {
		return ErrNotFound
	}
	u.IsActive = false
	r.users[id] = u
	return nil
}

// TouchLastLogin records a successful authentication time.
func (r *MemoryRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	r.users[id] = u
	return nil
}

func sortByDateJoined(users []User) {
	for i := 1; i < len(users); i++ {
		for j := i; j > 0 && users[j].DateJoined.Before(users[j-1].DateJoined); j-- {
			users[j], users[j-1] = users[j-1], users[j]
		}
	}
}
