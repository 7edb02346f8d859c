package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cuidame-health/backend/internal/session/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(id, userID string, created time.Time) *domain.Session {
	return &domain.Session{
		ID:               id,
		UserID:           userID,
		AccessToken:      "acc-" + id,
		RefreshToken:     "ref-" + id,
		ExpiresAt:        created.Add(time.Hour),
		RefreshExpiresAt: created.Add(30 * 24 * time.Hour),
		CreatedAt:        created,
		IsActive:         true,
	}
}

func mustCreate(t *testing.T, r *MemoryRepository, s *domain.Session) {
	t.Helper()
	if err := r.Create(context.Background(), s); err != nil {
		t.Fatalf("Create(%s): %v", s.ID, err)
	}
}

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	mustCreate(t, r, newSession("s1", "u1", t0))

	for name, find := range map[string]func() (*domain.Session, error){
		"id":      func() (*domain.Session, error) { return r.FindByID(ctx, "s1") },
		"access":  func() (*domain.Session, error) { return r.FindByAccessToken(ctx, "acc-s1") },
		"refresh": func() (*domain.Session, error) { return r.FindByRefreshToken(ctx, "ref-s1") },
	} {
		s, err := find()
		if err != nil || s == nil || s.ID != "s1" {
			t.Errorf("find by %s: got %+v, %v", name, s, err)
		}
	}
	if s, err := r.FindByAccessToken(ctx, "missing"); s != nil || err != nil {
		t.Errorf("missing token: got %+v, %v", s, err)
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	mustCreate(t, r, newSession("s1", "u1", t0))
	s, _ := r.FindByID(ctx, "s1")
	s.IsActive = false
	again, _ := r.FindByID(ctx, "s1")
	if !again.IsActive {
		t.Fatal("mutating a returned session must not change the store")
	}
}

func TestMemoryRepository_DuplicateToken(t *testing.T) {
	r := NewMemoryRepository()
	mustCreate(t, r, newSession("s1", "u1", t0))
	dup := newSession("s2", "u1", t0)
	dup.RefreshToken = "acc-s1"
	if err := r.Create(context.Background(), dup); !errors.Is(err, domain.ErrDuplicateToken) {
		t.Fatalf("Create duplicate: got %v, want ErrDuplicateToken", err)
	}
}

func TestMemoryRepository_FindActiveByUserOldestFirst(t *testing.T) {
	r := NewMemoryRepository()
	mustCreate(t, r, newSession("c", "u1", t0.Add(2*time.Minute)))
	mustCreate(t, r, newSession("a", "u1", t0))
	mustCreate(t, r, newSession("b", "u1", t0.Add(time.Minute)))
	mustCreate(t, r, newSession("other", "u2", t0))
	inactive := newSession("d", "u1", t0)
	inactive.IsActive = false
	mustCreate(t, r, inactive)

	list, err := r.FindActiveByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindActiveByUser: %v", err)
	}
	var ids []string
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("order: got %v, want [a b c]", ids)
	}
}

func TestMemoryRepository_UpdateTokensRotatesIndexes(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	mustCreate(t, r, newSession("s1", "u1", t0))

	rot := domain.Rotation{
		PreviousRefreshToken: "ref-s1",
		AccessToken:          "acc-new",
		RefreshToken:         "ref-new",
		ExpiresAt:            t0.Add(2 * time.Hour),
		RefreshExpiresAt:     t0.Add(31 * 24 * time.Hour),
		UsedAt:               t0.Add(time.Minute),
	}
	if err := r.UpdateTokens(ctx, "s1", rot); err != nil {
		t.Fatalf("UpdateTokens: %v", err)
	}
	if s, _ := r.FindByAccessToken(ctx, "acc-s1"); s != nil {
		t.Error("old access token still resolves")
	}
	if s, _ := r.FindByRefreshToken(ctx, "ref-s1"); s != nil {
		t.Error("old refresh token still resolves")
	}
	s, _ := r.FindByRefreshToken(ctx, "ref-new")
	if s == nil || s.ID != "s1" || !s.CreatedAt.Equal(t0) || s.LastUsedAt == nil {
		t.Fatalf("rotated session: got %+v", s)
	}

	// A second rotation presenting the consumed refresh token loses.
	rot.AccessToken, rot.RefreshToken = "acc-x", "ref-x"
	if err := r.UpdateTokens(ctx, "s1", rot); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("stale rotation: got %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryRepository_ConcurrentRotationSingleWinner(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	mustCreate(t, r, newSession("s1", "u1", t0))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			suffix := string(rune('a' + i))
			err := r.UpdateTokens(ctx, "s1", domain.Rotation{
				PreviousRefreshToken: "ref-s1",
				AccessToken:          "acc-" + suffix,
				RefreshToken:         "ref-" + suffix,
				ExpiresAt:            t0.Add(time.Hour),
				RefreshExpiresAt:     t0.Add(time.Hour),
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins: got %d, want 1", wins)
	}
}

func TestMemoryRepository_Deactivate(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	mustCreate(t, r, newSession("s1", "u1", t0))
	mustCreate(t, r, newSession("s2", "u1", t0))
	mustCreate(t, r, newSession("s3", "u2", t0))

	ok, err := r.DeactivateByAccessToken(ctx, "acc-s1")
	if err != nil || !ok {
		t.Fatalf("DeactivateByAccessToken: %v, %v", ok, err)
	}
	if ok, _ := r.DeactivateByAccessToken(ctx, "acc-s1"); ok {
		t.Error("second deactivation should report false")
	}
	n, err := r.DeactivateAllForUser(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("DeactivateAllForUser: got %d, %v; want 1", n, err)
	}
	if s, _ := r.FindByID(ctx, "s3"); !s.IsActive {
		t.Error("other user's session was deactivated")
	}
}

func TestMemoryRepository_Resolve(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	mustCreate(t, r, newSession("s1", "u1", t0))

	if _, res, _ := r.ResolveAccess(ctx, "nope", t0); res != domain.ResolutionNotFound {
		t.Errorf("unknown: got %s", res)
	}
	if s, res, _ := r.ResolveAccess(ctx, "acc-s1", t0.Add(time.Minute)); res != domain.ResolutionUsable || s.ID != "s1" {
		t.Errorf("fresh: got %s", res)
	}
	s, res, _ := r.ResolveAccess(ctx, "acc-s1", t0.Add(2*time.Hour))
	if res != domain.ResolutionExpired || !s.IsActive {
		t.Errorf("access expired: got %s active=%v, want expired and still active", res, s.IsActive)
	}
	if _, res, _ := r.ResolveRefresh(ctx, "ref-s1", t0.Add(2*time.Hour)); res != domain.ResolutionUsable {
		t.Errorf("refresh after access expiry check: got %s", res)
	}
	// Past the refresh expiry the session is dead and gets deactivated.
	if _, res, _ := r.ResolveAccess(ctx, "acc-s1", t0.Add(31*24*time.Hour)); res != domain.ResolutionExpired {
		t.Errorf("dead session: got %s", res)
	}
	if _, res, _ := r.ResolveAccess(ctx, "acc-s1", t0.Add(time.Minute)); res != domain.ResolutionInactive {
		t.Errorf("after deactivation: got %s", res)
	}
}

func TestMemoryRepository_SweepCriteria(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	expired := newSession("expired", "u1", t0.Add(-40*24*time.Hour))
	used := t0.Add(-35 * 24 * time.Hour)
	expired.LastUsedAt = &used
	mustCreate(t, r, expired)

	stale := newSession("stale", "u1", t0.Add(-20*24*time.Hour))
	stale.RefreshExpiresAt = t0.Add(10 * 24 * time.Hour)
	old := t0.Add(-15 * 24 * time.Hour)
	stale.LastUsedAt = &old
	mustCreate(t, r, stale)

	mustCreate(t, r, newSession("never", "u1", t0.Add(-48*time.Hour)))

	fresh := newSession("fresh", "u1", t0.Add(-time.Hour))
	mustCreate(t, r, fresh)

	if n, _ := r.PurgeExpired(ctx, t0); n != 1 {
		t.Errorf("PurgeExpired: got %d, want 1", n)
	}
	if n, _ := r.PurgeStaleInactive(ctx, t0.Add(-14*24*time.Hour)); n != 1 {
		t.Errorf("PurgeStaleInactive: got %d, want 1", n)
	}
	if n, _ := r.PurgeNeverUsed(ctx, t0.Add(-24*time.Hour)); n != 1 {
		t.Errorf("PurgeNeverUsed: got %d, want 1", n)
	}
	if s, _ := r.FindByID(ctx, "fresh"); !s.IsActive {
		t.Error("fresh session was swept")
	}
	// Second pass changes nothing.
	n1, _ := r.PurgeExpired(ctx, t0)
	n2, _ := r.PurgeStaleInactive(ctx, t0.Add(-14*24*time.Hour))
	n3, _ := r.PurgeNeverUsed(ctx, t0.Add(-24*time.Hour))
	if n1+n2+n3 != 0 {
		t.Errorf("second sweep: got %d/%d/%d, want zeros", n1, n2, n3)
	}
}

func TestMemoryRepository_DeleteRetired(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	retired := newSession("retired", "u1", t0.Add(-60*24*time.Hour))
	retired.IsActive = false
	mustCreate(t, r, retired)
	recent := newSession("recent", "u1", t0.Add(-time.Hour))
	recent.IsActive = false
	mustCreate(t, r, recent)
	mustCreate(t, r, newSession("active", "u1", t0.Add(-60*24*time.Hour)))

	n, err := r.DeleteRetired(ctx, t0.Add(-30*24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("DeleteRetired: got %d, %v; want 1", n, err)
	}
	if s, _ := r.FindByAccessToken(ctx, "acc-retired"); s != nil {
		t.Error("deleted session still indexed")
	}
	if s, _ := r.FindByID(ctx, "active"); s == nil {
		t.Error("active session deleted")
	}
}
