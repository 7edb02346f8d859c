package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sessionv1 "cuidame-health/backend/api/session/v1"
	"cuidame-health/backend/internal/server/interceptors"
	"cuidame-health/backend/internal/session/domain"
)

// SessionLister lists a user's usable sessions newest-first.
type SessionLister interface {
	ListActiveSessions(ctx context.Context, userID, currentSessionID string) ([]domain.Summary, error)
}

// Maintainer runs the retention passes. Implemented by the session governor.
type Maintainer interface {
	Sweep(ctx context.Context) (domain.SweepResult, error)
	Purge(ctx context.Context) (domain.PurgeResult, error)
}

// Server implements SessionService for listing and maintaining sessions.
// SweepSessions and PurgeSessions are admin-only; the role gate runs in the interceptor chain.
type Server struct {
	sessionv1.UnimplementedSessionServiceServer
	lister     SessionLister
	maintainer Maintainer
}

// NewServer returns a new Session gRPC server. A nil dependency makes its RPCs return Unimplemented.
func NewServer(lister SessionLister, maintainer Maintainer) *Server {
	return &Server{lister: lister, maintainer: maintainer}
}

// ListSessions returns the caller's sessions, marking the one the request was made with.
func (s *Server) ListSessions(ctx context.Context, _ *sessionv1.ListSessionsRequest) (*sessionv1.ListSessionsResponse, error) {
	if s.lister == nil {
		return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
	}
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return nil, interceptors.ToStatus(domain.ErrMissingToken)
	}
	sessionID, _ := interceptors.GetSessionID(ctx)
	list, err := s.lister.ListActiveSessions(ctx, userID, sessionID)
	if err != nil {
		return nil, interceptors.ToStatus(err)
	}
	out := make([]*sessionv1.SessionSummary, 0, len(list))
	for i := range list {
		out = append(out, SummaryToProto(&list[i]))
	}
	return &sessionv1.ListSessionsResponse{Sessions: out}, nil
}

// SweepSessions deactivates expired, stale, and never-used sessions.
func (s *Server) SweepSessions(ctx context.Context, _ *sessionv1.SweepSessionsRequest) (*sessionv1.SweepSessionsResponse, error) {
	if s.maintainer == nil {
		return nil, status.Error(codes.Unimplemented, "method SweepSessions not implemented")
	}
	res, err := s.maintainer.Sweep(ctx)
	if err != nil {
		return nil, interceptors.ToStatus(err)
	}
	return &sessionv1.SweepSessionsResponse{Expired: res.Expired, Inactive: res.Inactive, NeverUsed: res.NeverUsed}, nil
}

// PurgeSessions deletes inactive sessions past retention.
func (s *Server) PurgeSessions(ctx context.Context, _ *sessionv1.PurgeSessionsRequest) (*sessionv1.PurgeSessionsResponse, error) {
	if s.maintainer == nil {
		return nil, status.Error(codes.Unimplemented, "method PurgeSessions not implemented")
	}
	res, err := s.maintainer.Purge(ctx)
	if err != nil {
		return nil, interceptors.ToStatus(err)
	}
	return &sessionv1.PurgeSessionsResponse{Deleted: res.Deleted}, nil
}

// SummaryToProto converts a session summary to its wire form.
func SummaryToProto(s *domain.Summary) *sessionv1.SessionSummary {
	if s == nil {
		return nil
	}
	return &sessionv1.SessionSummary{
		ID:               s.ID,
		DeviceInfo:       s.DeviceInfo,
		DeviceName:       s.DeviceName,
		DeviceType:       s.DeviceType,
		IPAddress:        s.IPAddress,
		UserAgent:        s.UserAgent,
		CreatedAt:        s.CreatedAt,
		LastUsedAt:       s.LastUsedAt,
		ExpiresAt:        s.ExpiresAt,
		RefreshExpiresAt: s.RefreshExpiresAt,
		IsCurrent:        s.IsCurrent,
	}
}
