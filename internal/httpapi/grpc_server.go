package httpapi

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/esrabs/evaluation-commerciale-be/internal/auth"
	"github.com/esrabs/evaluation-commerciale-be/internal/obs"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales/remote"
)

// ReportServer is the server side of sales.v1.ReportService.
type ReportServer interface {
	PersonalStats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	SquadStats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Leaderboard(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var reportServiceDesc = grpc.ServiceDesc{
	ServiceName: remote.ServiceName,
	HandlerType: (*ReportServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(remote.MethodPersonalStats, ReportServer.PersonalStats),
		unaryMethod(remote.MethodSquadStats, ReportServer.SquadStats),
		unaryMethod(remote.MethodLeaderboard, ReportServer.Leaderboard),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sales/v1/report.proto",
}

func unaryMethod(name string, call func(ReportServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReportServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: remote.FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReportServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// GRPCServer implements the report and health services.
type GRPCServer struct {
	sales     *sales.Service
	tokens    *auth.TokenService
	readiness readinessChecker
}

// NewGRPCServer creates the gRPC service wrapper.
func NewGRPCServer(svc *sales.Service, tokens *auth.TokenService, r readinessChecker) *GRPCServer {
	if r == nil {
		r = ReadyProbe{}
	}
	return &GRPCServer{sales: svc, tokens: tokens, readiness: r}
}

// NewServer builds a grpc.Server with authentication and both services registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.authenticate))
	srv := grpc.NewServer(opts...)
	s.Register(srv)
	return srv
}

func (s *GRPCServer) Register(srv *grpc.Server) {
	srv.RegisterService(&reportServiceDesc, s)
	healthpb.RegisterHealthServer(srv, healthService{readiness: s.readiness})
}

// authenticate resolves the bearer token of report calls into an actor.
func (s *GRPCServer) authenticate(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !strings.HasPrefix(info.FullMethod, "/"+remote.ServiceName+"/") {
		return handler(ctx, req)
	}
	if s.tokens == nil {
		return nil, status.Error(codes.Unavailable, "authentication unavailable")
	}
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(remote.AuthMetadataKey)
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	token, ok := auth.BearerToken(values[0])
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	act, err := s.tokens.Authenticate(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return handler(auth.ContextWithActor(ctx, act), req)
}

func (s *GRPCServer) PersonalStats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.report(ctx, "me", in, func(act org.Actor, req remote.ReportRequest, r sales.Range) (any, error) {
		return s.sales.PersonalStats(ctx, act, r)
	})
}

func (s *GRPCServer) SquadStats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.report(ctx, "squad", in, func(act org.Actor, req remote.ReportRequest, r sales.Range) (any, error) {
		return s.sales.SquadStats(ctx, act, r)
	})
}

func (s *GRPCServer) Leaderboard(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.report(ctx, "leaderboard", in, func(act org.Actor, req remote.ReportRequest, r sales.Range) (any, error) {
		limit := req.Limit
		if limit == 0 {
			limit = sales.DefaultLeaderboardLimit
		}
		return s.sales.GlobalLeaderboard(ctx, act, limit, r)
	})
}

func (s *GRPCServer) report(ctx context.Context, name string, in *structpb.Struct, run func(org.Actor, remote.ReportRequest, sales.Range) (any, error)) (*structpb.Struct, error) {
	act, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	var req remote.ReportRequest
	if err := remote.FromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	rng, err := sales.ParseRange(req.From, req.To)
	if err != nil {
		return nil, remote.Status(err)
	}
	start := time.Now()
	out, err := run(act, req, rng)
	if err != nil {
		if st := remote.Status(err); status.Code(st) == codes.Internal {
			obs.Logger().Error("report failed", "report", name, "error", err.Error())
		}
		return nil, remote.Status(err)
	}
	obs.ObserveReport(name, time.Since(start))
	st, err := remote.ToStruct(out)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return st, nil
}

// healthService answers grpc.health.v1 from the readiness probe.
type healthService struct {
	healthpb.UnimplementedHealthServer
	readiness readinessChecker
}

func (h healthService) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != remote.ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	if err := h.readiness.Check(ctx); err != nil {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
