package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "cuidame-health/backend/api/auth/v1"
	identitydomain "cuidame-health/backend/internal/identity/domain"
	"cuidame-health/backend/internal/identity/service"
	"cuidame-health/backend/internal/server/interceptors"
	sessiondomain "cuidame-health/backend/internal/session/domain"
	sessionhandler "cuidame-health/backend/internal/session/handler"
	userdomain "cuidame-health/backend/internal/user/domain"
)

// Authenticator is the subset of the auth service the AuthService handler calls.
type Authenticator interface {
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.RefreshResult, error)
	LogoutSession(ctx context.Context, userID string, in service.LogoutInput) (*service.LogoutResult, error)
	CurrentSession(ctx context.Context, p identitydomain.Principal) (*userdomain.User, *sessiondomain.Summary, error)
}

// AuthServer implements AuthService for login, token rotation, logout, and session validation.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	auth Authenticator
}

// NewAuthServer returns a new Auth gRPC server. If auth is nil, all RPCs return Unimplemented.
func NewAuthServer(auth Authenticator) *AuthServer {
	return &AuthServer{auth: auth}
}

// Login authenticates email and password and opens a session.
func (s *AuthServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.LoginResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Login not implemented")
	}
	res, err := s.auth.Login(ctx, service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Device: service.DeviceInfo{
			Info: req.DeviceInfo,
			Name: req.DeviceName,
			Type: req.DeviceType,
		},
		IPAddress: interceptors.ClientIP(ctx),
		UserAgent: interceptors.UserAgent(ctx),
	})
	if err != nil {
		return nil, interceptors.ToStatus(err)
	}
	return &authv1.LoginResponse{
		User:             userToProto(&res.User),
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		SessionID:        res.SessionID,
		ExpiresAt:        res.ExpiresAt,
		RefreshExpiresAt: res.RefreshExpiresAt,
	}, nil
}

// Refresh rotates the token pair. The refresh gate has already accepted the token; without the
// gate the body token is used.
func (s *AuthServer) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.RefreshResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
	}
	token, ok := interceptors.GetRefreshToken(ctx)
	if !ok {
		token = req.GetRefreshToken()
	}
	res, err := s.auth.Refresh(ctx, token)
	if err != nil {
		return nil, interceptors.ToStatus(err)
	}
	return &authv1.RefreshResponse{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		SessionID:        res.SessionID,
		ExpiresAt:        res.ExpiresAt,
		RefreshExpiresAt: res.RefreshExpiresAt,
	}, nil
}

// Logout retires one of the caller's sessions, or all of them with logout_all.
func (s *AuthServer) Logout(ctx context.Context, req *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
	}
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return nil, interceptors.ToStatus(sessiondomain.ErrMissingToken)
	}
	res, err := s.auth.LogoutSession(ctx, userID, service.LogoutInput{
		SessionID:   req.SessionID,
		AccessToken: req.AccessToken,
		LogoutAll:   req.LogoutAll,
	})
	if err != nil {
		return nil, interceptors.ToStatus(err)
	}
	return &authv1.LogoutResponse{Success: res.Success, Message: res.Message}, nil
}

// ValidateSession returns the caller's profile and current session.
func (s *AuthServer) ValidateSession(ctx context.Context, _ *authv1.ValidateSessionRequest) (*authv1.ValidateSessionResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method ValidateSession not implemented")
	}
	p, ok := interceptors.GetPrincipal(ctx)
	if !ok {
		return nil, interceptors.ToStatus(sessiondomain.ErrMissingToken)
	}
	user, sum, err := s.auth.CurrentSession(ctx, p)
	if err != nil {
		return nil, interceptors.ToStatus(err)
	}
	return &authv1.ValidateSessionResponse{
		User:    userToProto(user),
		Session: sessionhandler.SummaryToProto(sum),
	}, nil
}

func userToProto(u *userdomain.User) *authv1.User {
	if u == nil {
		return nil
	}
	return &authv1.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
