package server

import (
	"context"
	"time"

	"asr-auth/internal/audit"
	"asr-auth/internal/health"
	"asr-auth/internal/policy/engine"
	"asr-auth/internal/server/interceptors"
	"asr-auth/internal/telemetry"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	channelzsvc "google.golang.org/grpc/channelz/service"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name the gRPC health service reports readiness under.
const ServiceName = "asr.auth"

// healthCheckMethod and healthWatchMethod are reachable without a token.
const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"
)

// GRPCDeps holds the dependencies of the gRPC listener.
type GRPCDeps struct {
	// Authenticator resolves bearer tokens on protected methods.
	Authenticator interceptors.Authenticator
	// Evaluator authorizes protected methods; the default policy reserves channelz for ROLE_ADMIN.
	Evaluator engine.Evaluator
	// Audit records denied calls. May be nil.
	Audit audit.AuditLogger
	// Emitter receives one event per RPC. If nil, no RPC telemetry is emitted.
	Emitter telemetry.EventEmitter
	Log     logrus.FieldLogger
}

// NewGRPCServer returns a gRPC server with OTel stats, token auth, authorization and telemetry
// interceptors. Health is public; channelz diagnostics need a token the policy admits.
// The returned health server starts NOT_SERVING for ServiceName; WatchHealth flips it.
func NewGRPCServer(deps GRPCDeps) (*grpc.Server, *grpchealth.Server) {
	public := map[string]bool{healthCheckMethod: true, healthWatchMethod: true}
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(deps.Authenticator, public),
			interceptors.AuthorizeUnary(deps.Evaluator, public, deps.Audit, deps.Log),
			interceptors.TelemetryUnary(deps.Emitter, deps.Log, public),
		),
	)
	hs := grpchealth.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	channelzsvc.RegisterChannelzServiceToServer(s)
	return s, hs
}

// WatchHealth runs checker every interval and mirrors the result into hs for ServiceName
// and the overall ("") service. It checks once immediately and returns when ctx is done.
func WatchHealth(ctx context.Context, hs *grpchealth.Server, checker *health.Checker, interval time.Duration, log logrus.FieldLogger) {
	update := func() {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		st := healthpb.HealthCheckResponse_SERVING
		if err := checker.Check(checkCtx); err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			if log != nil {
				log.WithError(err).Warn("health: readiness check failed")
			}
		}
		hs.SetServingStatus(ServiceName, st)
		hs.SetServingStatus("", st)
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}
