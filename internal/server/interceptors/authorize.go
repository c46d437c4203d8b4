package interceptors

import (
	"context"
	"net/http"

	"asr-auth/internal/audit"
	"asr-auth/internal/auth"
	"asr-auth/internal/policy/engine"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AuthorizeUnary asks evaluator whether the principal set by AuthUnary may call the method.
// The policy sees the full method name as the path and POST as the method. Public methods
// skip the check; a nil evaluator allows every authenticated call. auditLogger may be nil.
func AuthorizeUnary(evaluator engine.Evaluator, publicMethods map[string]bool, auditLogger audit.AuditLogger, log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if evaluator == nil || publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		p, ok := GetPrincipal(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Code)
		}
		allowed, err := evaluator.Allow(ctx, engine.Input{
			Method:      http.MethodPost,
			Path:        info.FullMethod,
			Username:    p.Username,
			Authorities: p.Authorities,
		})
		if err != nil {
			if log != nil {
				log.WithError(err).WithField("method", info.FullMethod).Error("authorization policy failed")
			}
			return nil, status.Error(codes.Unavailable, auth.ErrServiceUnavailable.Code)
		}
		if !allowed {
			if auditLogger != nil {
				auditLogger.LogEvent(ctx, p.Username, audit.ActionAccessDenied, info.FullMethod, "")
			}
			return nil, status.Error(codes.PermissionDenied, auth.ErrAccessDenied.Code)
		}
		return handler(ctx, req)
	}
}
