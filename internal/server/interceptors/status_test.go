package interceptors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cuidame-health/backend/internal/security"
	sessiondomain "cuidame-health/backend/internal/session/domain"
)

func TestToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"credentials", sessiondomain.ErrInvalidCredentials, codes.Unauthenticated, "invalid credentials"},
		{"wrapped expiry", fmt.Errorf("decode: %w", security.ErrTokenExpired), codes.Unauthenticated, "token expired"},
		{"signature", security.ErrInvalidToken, codes.Unauthenticated, "invalid token signature"},
		{"session expired", sessiondomain.ErrSessionExpired, codes.Unauthenticated, "session expired"},
		{"logout target", sessiondomain.ErrLogoutTargetRequired, codes.InvalidArgument, "exactly one of session_id or access_token is required"},
		{"session id", sessiondomain.ErrSessionIDNotFound, codes.NotFound, "session not found"},
		{"forbidden", sessiondomain.ErrForbidden, codes.PermissionDenied, "permission denied"},
		{"passthrough", status.Error(codes.PermissionDenied, "nope"), codes.PermissionDenied, "nope"},
		{"unknown", errors.New("pq: connection refused"), codes.Internal, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, ok := status.FromError(ToStatus(tc.err))
			if !ok {
				t.Fatal("not a status error")
			}
			if st.Code() != tc.code || st.Message() != tc.msg {
				t.Errorf("got %v %q, want %v %q", st.Code(), st.Message(), tc.code, tc.msg)
			}
		})
	}
	if ToStatus(nil) != nil {
		t.Error("ToStatus(nil) should be nil")
	}
}
