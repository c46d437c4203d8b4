package interceptors

import (
	"context"
	"time"

	"asr-auth/internal/telemetry"
	"asr-auth/internal/telemetry/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// TelemetryUnary returns a unary server interceptor that emits an AuthEvent after each RPC.
// Best-effort: failures are logged and do not fail the RPC. If emitter is nil, the interceptor no-ops.
// skipMethods is the set of full method names to not emit (e.g. Health/Check).
func TelemetryUnary(emitter telemetry.EventEmitter, log logrus.FieldLogger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		telemetry.EmitAsync(emitter, log, &domain.AuthEvent{
			ID:        uuid.NewString(),
			EventType: domain.EventGRPCRequest,
			Source:    "grpc_interceptor",
			Username:  GetUsername(ctx),
			Path:      info.FullMethod,
			Code:      status.Code(err).String(),
			LatencyMS: time.Since(start).Milliseconds(),
			Metadata:  map[string]string{"client_ip": ClientIP(ctx)},
			CreatedAt: start.UTC(),
		})
		return resp, err
	}
}
