// Package sessionv1 defines the cuidame.session.v1.SessionService wire messages and service descriptor.
package sessionv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	SessionService_ListSessions_FullMethodName  = "/cuidame.session.v1.SessionService/ListSessions"
	SessionService_SweepSessions_FullMethodName = "/cuidame.session.v1.SessionService/SweepSessions"
	SessionService_PurgeSessions_FullMethodName = "/cuidame.session.v1.SessionService/PurgeSessions"
)

// SessionSummary is the redacted view of a session. Token values are never sent.
type SessionSummary struct {
	ID               string     `json:"id"`
	DeviceInfo       string     `json:"device_info,omitempty"`
	DeviceName       string     `json:"device_name,omitempty"`
	DeviceType       string     `json:"device_type,omitempty"`
	IPAddress        string     `json:"ip_address,omitempty"`
	UserAgent        string     `json:"user_agent,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RefreshExpiresAt time.Time  `json:"refresh_expires_at"`
	IsCurrent        bool       `json:"is_current"`
}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions []*SessionSummary `json:"sessions"`
}

type SweepSessionsRequest struct{}

type SweepSessionsResponse struct {
	Expired   int64 `json:"expired"`
	Inactive  int64 `json:"inactive"`
	NeverUsed int64 `json:"never_used"`
}

type PurgeSessionsRequest struct{}

type PurgeSessionsResponse struct {
	Deleted int64 `json:"deleted"`
}

// SessionServiceServer is the server API for SessionService.
type SessionServiceServer interface {
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	SweepSessions(context.Context, *SweepSessionsRequest) (*SweepSessionsResponse, error)
	PurgeSessions(context.Context, *PurgeSessionsRequest) (*PurgeSessionsResponse, error)
}

// UnimplementedSessionServiceServer returns Unimplemented for every method.
type UnimplementedSessionServiceServer struct{}

func (UnimplementedSessionServiceServer) ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
}
func (UnimplementedSessionServiceServer) SweepSessions(context.Context, *SweepSessionsRequest) (*SweepSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SweepSessions not implemented")
}
func (UnimplementedSessionServiceServer) PurgeSessions(context.Context, *PurgeSessionsRequest) (*PurgeSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PurgeSessions not implemented")
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

func _SessionService_ListSessions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).ListSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SessionService_ListSessions_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServiceServer).ListSessions(ctx, req.(*ListSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SessionService_SweepSessions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SweepSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).SweepSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SessionService_SweepSessions_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServiceServer).SweepSessions(ctx, req.(*SweepSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SessionService_PurgeSessions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PurgeSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).PurgeSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SessionService_PurgeSessions_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServiceServer).PurgeSessions(ctx, req.(*PurgeSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// SessionService_ServiceDesc is the grpc.ServiceDesc for SessionService.
var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "cuidame.session.v1.SessionService",
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSessions", Handler: _SessionService_ListSessions_Handler},
		{MethodName: "SweepSessions", Handler: _SessionService_SweepSessions_Handler},
		{MethodName: "PurgeSessions", Handler: _SessionService_PurgeSessions_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "session/v1/session.json",
}

// SessionServiceClient is the client API for SessionService.
type SessionServiceClient interface {
	ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error)
	SweepSessions(ctx context.Context, in *SweepSessionsRequest, opts ...grpc.CallOption) (*SweepSessionsResponse, error)
	PurgeSessions(ctx context.Context, in *PurgeSessionsRequest, opts ...grpc.CallOption) (*PurgeSessionsResponse, error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc}
}

func (c *sessionServiceClient) ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	out := new(ListSessionsResponse)
	if err := c.cc.Invoke(ctx, SessionService_ListSessions_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) SweepSessions(ctx context.Context, in *SweepSessionsRequest, opts ...grpc.CallOption) (*SweepSessionsResponse, error) {
	out := new(SweepSessionsResponse)
	if err := c.cc.Invoke(ctx, SessionService_SweepSessions_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) PurgeSessions(ctx context.Context, in *PurgeSessionsRequest, opts ...grpc.CallOption) (*PurgeSessionsResponse, error) {
	out := new(PurgeSessionsResponse)
	if err := c.cc.Invoke(ctx, SessionService_PurgeSessions_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
