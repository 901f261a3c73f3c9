package remote

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
)

// Client calls the report service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a new client with sensible defaults (insecure transport).
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// WithToken attaches a bearer token to outgoing calls made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, AuthMetadataKey, "Bearer "+token)
}

func (c *Client) PersonalStats(ctx context.Context, from, to string) (sales.PersonalReport, error) {
	var out sales.PersonalReport
	err := c.call(ctx, MethodPersonalStats, ReportRequest{From: from, To: to}, &out)
	return out, err
}

func (c *Client) SquadStats(ctx context.Context, from, to string) (sales.SquadReport, error) {
	var out sales.SquadReport
	err := c.call(ctx, MethodSquadStats, ReportRequest{From: from, To: to}, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int, from, to string) (sales.Leaderboard, error) {
	var out sales.Leaderboard
	err := c.call(ctx, MethodLeaderboard, ReportRequest{From: from, To: to, Limit: limit}, &out)
	return out, err
}

// Health asks the standard health service for the report service status.
func (c *Client) Health(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func (c *Client) call(ctx context.Context, method string, req ReportRequest, dst any) error {
	in, err := ToStruct(req)
	if err != nil {
		return err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return mapError(err)
	}
	return FromStruct(out, dst)
}

// WithTimeout returns a context with default timeout useful for CLI tools.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(parent, d)
}
