package healthcheck

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/logging"
)

// Probe queries a running health server.
type Probe struct {
	client healthpb.HealthClient
	logger *zap.Logger
}

// Dial returns a ready-to-use probe for the health server at addr.
func Dial(ctx context.Context, addr string, logger *zap.Logger, opts ...grpc.DialOption) (*Probe, *grpc.ClientConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}, opts...)
	conn, err := grpc.DialContext(dialCtx, addr, opts...)
	if err != nil {
		wrapped := &logging.OperationError{Operation: "healthcheck.dial", Err: err}
		logger.Error("failed to dial health server", append(wrapped.Fields(), zap.String("addr", addr))...)
		return nil, nil, wrapped
	}
	return &Probe{client: healthpb.NewHealthClient(conn), logger: logger}, conn, nil
}

// Check returns the serving status of service. An empty service is the
// overall server status.
func (p *Probe) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		wrapped := &logging.OperationError{Operation: "healthcheck.check", RequestID: service, Err: err}
		p.logger.Error("health check call failed", wrapped.Fields()...)
		return healthpb.HealthCheckResponse_UNKNOWN, wrapped
	}
	return resp.GetStatus(), nil
}
