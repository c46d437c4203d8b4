package interceptors

import (
	"context"
	"net/http"
	"strings"

	"asr-auth/internal/auth"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const bearerPrefix = "bearer "

// Authenticator resolves a presented token and session key to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token, sessionKey string) (*auth.Principal, error)
}

// AuthUnary returns a unary server interceptor that resolves the token from gRPC metadata
// (authorization: Bearer, or x-auth-token) and x-session-key, and sets the principal in context.
// publicMethods is the set of full method names that do not require a token
// (e.g. grpc.health.v1.Health/Check); a bad token on a public method continues anonymously.
func AuthUnary(authn Authenticator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token, sessionKey := extractCredentials(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Code)
		}

		p, err := authn.Authenticate(ctx, token, sessionKey)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, statusFromError(err)
		}
		return handler(WithPrincipal(ctx, p), req)
	}
}

// statusFromError maps an auth error to a gRPC status carrying the public error code.
func statusFromError(err error) error {
	e := auth.Lookup(err)
	switch e.Status {
	case http.StatusForbidden:
		return status.Error(codes.PermissionDenied, e.PublicCode())
	case http.StatusServiceUnavailable:
		return status.Error(codes.Unavailable, e.PublicCode())
	case http.StatusUnauthorized:
		return status.Error(codes.Unauthenticated, e.PublicCode())
	}
	return status.Error(codes.Internal, e.PublicCode())
}

// extractCredentials returns the token and session key from ctx metadata; missing values are "".
func extractCredentials(ctx context.Context) (token, sessionKey string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ""
	}
	token = extractBearer(md)
	if token == "" {
		token = first(md, "x-auth-token")
	}
	return token, first(md, "x-session-key")
}

// extractBearer returns the Bearer token from metadata, or "" if missing or malformed.
func extractBearer(md metadata.MD) string {
	v := first(md, "authorization")
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func first(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
