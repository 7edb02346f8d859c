package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"cuidame-health/backend/internal/security"
	"cuidame-health/backend/internal/session/domain"
)

// MemoryRepository keeps sessions in process memory, indexed by id and by both tokens.
// Used by tests and by the server when no database is configured.
type MemoryRepository struct {
	mu        sync.RWMutex
	byID      map[string]*entry
	byAccess  map[string]string
	byRefresh map[string]string
	seq       uint64
}

type entry struct {
	s   *domain.Session
	seq uint64
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:      make(map[string]*entry),
		byAccess:  make(map[string]string),
		byRefresh: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; ok {
		return domain.ErrDuplicateToken
	}
	if r.tokenTaken(s.AccessToken, s.ID) || r.tokenTaken(s.RefreshToken, s.ID) {
		return domain.ErrDuplicateToken
	}
	r.seq++
	r.byID[s.ID] = &entry{s: s.Clone(), seq: r.seq}
	r.byAccess[s.AccessToken] = s.ID
	r.byRefresh[s.RefreshToken] = s.ID
	return nil
}

// tokenTaken reports whether token is indexed for a session other than id. Caller holds mu.
func (r *MemoryRepository) tokenTaken(token, id string) bool {
	if other, ok := r.byAccess[token]; ok && other != id {
		return true
	}
	if other, ok := r.byRefresh[token]; ok && other != id {
		return true
	}
	return false
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byID[id]; ok {
		return e.s.Clone(), nil
	}
	return nil, nil
}

func (r *MemoryRepository) FindByAccessToken(ctx context.Context, token string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byAccess, token).Clone(), nil
}

func (r *MemoryRepository) FindByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byRefresh, token).Clone(), nil
}

func (r *MemoryRepository) lookup(index map[string]string, token string) *domain.Session {
	id, ok := index[token]
	if !ok {
		return nil
	}
	if e, ok := r.byID[id]; ok {
		return e.s
	}
	return nil
}

func (r *MemoryRepository) FindActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entries []*entry
	for _, e := range r.byID {
		if e.s.UserID == userID && e.s.IsActive {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.s.CreatedAt.Equal(b.s.CreatedAt) {
			return a.s.CreatedAt.Before(b.s.CreatedAt)
		}
		return a.seq < b.seq
	})
	out := make([]*domain.Session, len(entries))
	for i, e := range entries {
		out[i] = e.s.Clone()
	}
	return out, nil
}

func (r *MemoryRepository) UpdateTokens(ctx context.Context, id string, rot domain.Rotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok || !e.s.IsActive {
		return domain.ErrSessionNotFound
	}
	if rot.PreviousRefreshToken != "" && !security.TokensEqual(e.s.RefreshToken, rot.PreviousRefreshToken) {
		return domain.ErrSessionNotFound
	}
	if r.tokenTaken(rot.AccessToken, id) || r.tokenTaken(rot.RefreshToken, id) {
		return domain.ErrDuplicateToken
	}
	delete(r.byAccess, e.s.AccessToken)
	delete(r.byRefresh, e.s.RefreshToken)
	e.s.AccessToken = rot.AccessToken
	e.s.RefreshToken = rot.RefreshToken
	e.s.ExpiresAt = rot.ExpiresAt
	e.s.RefreshExpiresAt = rot.RefreshExpiresAt
	if !rot.UsedAt.IsZero() {
		used := rot.UsedAt
		e.s.LastUsedAt = &used
	}
	r.byAccess[rot.AccessToken] = id
	r.byRefresh[rot.RefreshToken] = id
	return nil
}

func (r *MemoryRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[id]; ok {
		e.s.LastUsedAt = &at
	}
	return nil
}

func (r *MemoryRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[id]; ok {
		e.s.IsActive = false
	}
	return nil
}

func (r *MemoryRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	return r.deactivateWhere(func(s *domain.Session) bool { return s.UserID == userID }), nil
}

func (r *MemoryRepository) DeactivateByAccessToken(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.lookup(r.byAccess, token)
	if s == nil || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (r *MemoryRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.deactivateWhere(func(s *domain.Session) bool { return !now.Before(s.RefreshExpiresAt) }), nil
}

func (r *MemoryRepository) PurgeStaleInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deactivateWhere(func(s *domain.Session) bool { return s.LastActivity().Before(cutoff) }), nil
}

func (r *MemoryRepository) PurgeNeverUsed(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deactivateWhere(func(s *domain.Session) bool { return s.LastUsedAt == nil && s.CreatedAt.Before(cutoff) }), nil
}

// deactivateWhere clears IsActive on every active session matching pred.
func (r *MemoryRepository) deactivateWhere(pred func(*domain.Session) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.byID {
		if e.s.IsActive && pred(e.s) {
			e.s.IsActive = false
			n++
		}
	}
	return n
}

func (r *MemoryRepository) DeleteRetired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.byID {
		if e.s.IsActive || !e.s.LastActivity().Before(cutoff) {
			continue
		}
		delete(r.byAccess, e.s.AccessToken)
		delete(r.byRefresh, e.s.RefreshToken)
		delete(r.byID, id)
		n++
	}
	return n, nil
}

func (r *MemoryRepository) ResolveAccess(ctx context.Context, token string, now time.Time) (*domain.Session, domain.Resolution, error) {
	return r.resolve(r.byAccess, token, now, func(s *domain.Session) time.Time { return s.ExpiresAt })
}

func (r *MemoryRepository) ResolveRefresh(ctx context.Context, token string, now time.Time) (*domain.Session, domain.Resolution, error) {
	return r.resolve(r.byRefresh, token, now, func(s *domain.Session) time.Time { return s.RefreshExpiresAt })
}

func (r *MemoryRepository) resolve(index map[string]string, token string, now time.Time, expiry func(*domain.Session) time.Time) (*domain.Session, domain.Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.lookup(index, token)
	if s == nil {
		return nil, domain.ResolutionNotFound, nil
	}
	if !s.IsActive {
		return s.Clone(), domain.ResolutionInactive, nil
	}
	if !now.Before(expiry(s)) {
		if !now.Before(s.RefreshExpiresAt) {
			s.IsActive = false
		}
		return s.Clone(), domain.ResolutionExpired, nil
	}
	return s.Clone(), domain.ResolutionUsable, nil
}
