// Package healthv1 defines the cuidame.health.v1.HealthService wire messages and service descriptor.
package healthv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const HealthService_HealthCheck_FullMethodName = "/cuidame.health.v1.HealthService/HealthCheck"

type ServingStatus string

const (
	ServingStatus_SERVING     ServingStatus = "SERVING"
	ServingStatus_NOT_SERVING ServingStatus = "NOT_SERVING"
)

type HealthCheckRequest struct{}

// HealthCheckResponse reports overall status and, per dependency, "ok" or the failure message.
type HealthCheckResponse struct {
	Status ServingStatus     `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (r *HealthCheckResponse) GetStatus() ServingStatus {
	if r == nil {
		return ""
	}
	return r.Status
}

// HealthServiceServer is the server API for HealthService.
type HealthServiceServer interface {
	HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
}

// UnimplementedHealthServiceServer returns Unimplemented for every method.
type UnimplementedHealthServiceServer struct{}

func (UnimplementedHealthServiceServer) HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method HealthCheck not implemented")
}

func RegisterHealthServiceServer(s grpc.ServiceRegistrar, srv HealthServiceServer) {
	s.RegisterService(&HealthService_ServiceDesc, srv)
}

func _HealthService_HealthCheck_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HealthServiceServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HealthService_HealthCheck_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HealthServiceServer).HealthCheck(ctx, req.(*HealthCheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// HealthService_ServiceDesc is the grpc.ServiceDesc for HealthService.
var HealthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "cuidame.health.v1.HealthService",
	HandlerType: (*HealthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "HealthCheck", Handler: _HealthService_HealthCheck_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "health/v1/health.json",
}

// HealthServiceClient is the client API for HealthService.
type HealthServiceClient interface {
	HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error)
}

type healthServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewHealthServiceClient(cc grpc.ClientConnInterface) HealthServiceClient {
	return &healthServiceClient{cc}
}

func (c *healthServiceClient) HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error) {
	out := new(HealthCheckResponse)
	if err := c.cc.Invoke(ctx, HealthService_HealthCheck_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
