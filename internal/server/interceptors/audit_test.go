package interceptors

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"

	"cuidame-health/backend/internal/audit"
	auditrepo "cuidame-health/backend/internal/audit/repository"
	identitydomain "cuidame-health/backend/internal/identity/domain"
)

func TestAuditUnary_RecordsAuthenticatedCall(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	interceptor := AuditUnary(audit.NewLogger(repo, ClientIP, nil), nil)
	ctx := WithPrincipal(context.Background(), identitydomain.Principal{UserID: "user-1", SessionID: "s1"})
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/cuidame.session.v1.SessionService/SweepSessions"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	entries := repo.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.UserID != "user-1" || e.Action != "sessions_swept" || e.Resource != "session" {
		t.Errorf("entry = %+v", e)
	}
}

func TestAuditUnary_SkipsUnauthenticatedAndSkipped(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	skip := map[string]bool{"/cuidame.session.v1.SessionService/ListSessions": true}
	interceptor := AuditUnary(audit.NewLogger(repo, nil, nil), skip)
	h := func(ctx context.Context, req interface{}) (interface{}, error) { return nil, errors.New("boom") }

	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/cuidame.auth.v1.AuthService/Login"}, h)
	authed := WithPrincipal(context.Background(), identitydomain.Principal{UserID: "user-1"})
	_, err := interceptor(authed, nil, &grpc.UnaryServerInfo{FullMethod: "/cuidame.session.v1.SessionService/ListSessions"}, h)
	if err == nil || err.Error() != "boom" {
		t.Errorf("handler error should pass through, got %v", err)
	}
	if n := len(repo.Entries()); n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
}

func TestAuditUnary_NilLogger(t *testing.T) {
	interceptor := AuditUnary(nil, nil)
	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil })
	if err != nil || resp != "ok" {
		t.Fatalf("resp=%v err=%v", resp, err)
	}
}
