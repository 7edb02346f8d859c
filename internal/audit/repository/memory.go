package repository

import (
	"context"
	"sync"

	"cuidame-health/backend/internal/audit/domain"
)

// MemoryRepository keeps audit entries in memory. Used when no database is configured.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *a)
	return nil
}

// Entries returns a copy of the recorded entries in insertion order.
func (r *MemoryRepository) Entries() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLog(nil), r.entries...)
}
