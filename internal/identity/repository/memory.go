package repository

import (
	"context"
	"sync"

	"cuidame-health/backend/internal/identity/domain"
)

// MemoryRepository is an in-process identity store for tests and database-less runs.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]domain.Identity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Identity)}
}

func (r *MemoryRepository) GetByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, i := range r.m {
		if i.UserID == userID && i.Provider == provider {
			return &i, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[i.ID] = *i
	return nil
}

func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.m[id]; ok {
		i.PasswordHash = passwordHash
		r.m[id] = i
	}
	return nil
}
