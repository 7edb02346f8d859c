package audit

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"cuidame-health/backend/internal/audit/domain"
)

// mockAuditRepo implements audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	ipExtractor := func(ctx context.Context) string {
		return "192.168.1.1"
	}
	logger := NewLogger(repo, ipExtractor, zaptest.NewLogger(t))

	logger.LogEvent(context.Background(), "user-1", domain.ActionLogout, domain.ResourceSession, `{"count":1}`)

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.Action != domain.ActionLogout || entry.Resource != domain.ResourceSession {
		t.Errorf("action/resource = %q/%q", entry.Action, entry.Resource)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Error("id and created_at must be set")
	}
}

func TestLogger_LogEvent_NoIPExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "", domain.ActionLoginFailure, domain.ResourceSession, "")
	if len(repo.entries) != 1 || repo.entries[0].IP != "unknown" {
		t.Fatalf("entries = %+v", repo.entries)
	}
}

func TestLogger_LogEvent_RepoErrorIsSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	NewLogger(repo, nil, zaptest.NewLogger(t)).LogEvent(context.Background(), "u", "a", "r", "")
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.LogEvent(context.Background(), "u", "a", "r", "")
}

func TestMetadata(t *testing.T) {
	if Metadata(nil) != "" {
		t.Error("empty fields should encode to empty string")
	}
	if got := Metadata(map[string]any{"count": 2}); got != `{"count":2}` {
		t.Errorf("Metadata = %q", got)
	}
}
