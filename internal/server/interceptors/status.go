package interceptors

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cuidame-health/backend/internal/security"
	sessiondomain "cuidame-health/backend/internal/session/domain"
)

var statusTable = []struct {
	err  error
	code codes.Code
	msg  string
}{
	{sessiondomain.ErrInvalidCredentials, codes.Unauthenticated, "invalid credentials"},
	{sessiondomain.ErrMissingToken, codes.Unauthenticated, "missing or invalid authorization"},
	{security.ErrTokenExpired, codes.Unauthenticated, "token expired"},
	{security.ErrInvalidToken, codes.Unauthenticated, "invalid token signature"},
	{sessiondomain.ErrWrongTokenKind, codes.Unauthenticated, "wrong token kind"},
	{sessiondomain.ErrSessionNotFound, codes.Unauthenticated, "session not found"},
	{sessiondomain.ErrSessionExpired, codes.Unauthenticated, "session expired"},
	{sessiondomain.ErrSessionInactive, codes.Unauthenticated, "session inactive"},
	{sessiondomain.ErrLogoutTargetRequired, codes.InvalidArgument, "exactly one of session_id or access_token is required"},
	{sessiondomain.ErrSessionIDNotFound, codes.NotFound, "session not found"},
	{sessiondomain.ErrForbidden, codes.PermissionDenied, "permission denied"},
}

// ToStatus maps a service error to the gRPC status returned to clients. Errors that already
// carry a status pass through; unknown errors become Internal with a generic message.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return status.Error(e.code, e.msg)
		}
	}
	return status.Error(codes.Internal, "internal error")
}
