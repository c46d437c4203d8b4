package interceptors

import (
	"context"
	"fmt"
	"testing"

	"asr-auth/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type fakeAuthenticator struct {
	token, sessionKey string
	err               error
	gotKey            string
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token, sessionKey string) (*auth.Principal, error) {
	f.gotKey = sessionKey
	if f.err != nil {
		return nil, f.err
	}
	if token != f.token {
		return nil, auth.ErrTokenNotFound
	}
	return &auth.Principal{Username: "archer", SessionKey: sessionKey}, nil
}

func echoPrincipal(ctx context.Context, _ interface{}) (interface{}, error) {
	return GetUsername(ctx), nil
}

func call(t *testing.T, interceptor grpc.UnaryServerInterceptor, ctx context.Context, method string) (interface{}, error) {
	t.Helper()
	return interceptor(ctx, "request", &grpc.UnaryServerInfo{FullMethod: method}, echoPrincipal)
}

func TestAuthUnary_PublicMethod(t *testing.T) {
	interceptor := AuthUnary(&fakeAuthenticator{token: "t"}, map[string]bool{"/grpc.health.v1.Health/Check": true})

	resp, err := call(t, interceptor, context.Background(), "/grpc.health.v1.Health/Check")
	require.NoError(t, err)
	assert.Equal(t, "", resp)
}

func TestAuthUnary_PublicMethod_BadTokenContinuesAnonymously(t *testing.T) {
	interceptor := AuthUnary(&fakeAuthenticator{token: "t"}, map[string]bool{"/grpc.health.v1.Health/Check": true})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer wrong"))

	resp, err := call(t, interceptor, ctx, "/grpc.health.v1.Health/Check")
	require.NoError(t, err)
	assert.Equal(t, "", resp)
}

func TestAuthUnary_ProtectedMethod_NoToken(t *testing.T) {
	interceptor := AuthUnary(&fakeAuthenticator{token: "t"}, nil)

	_, err := call(t, interceptor, context.Background(), "/asr.Service/Protected")
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, auth.ErrUnauthenticated.Code, st.Message())
}

func TestAuthUnary_ProtectedMethod_ValidToken(t *testing.T) {
	testCases := []struct {
		name string
		md   metadata.MD
	}{
		{"bearer", metadata.Pairs("authorization", "Bearer tok", "x-session-key", "sk-1")},
		{"lowercase bearer", metadata.Pairs("authorization", "bearer tok", "x-session-key", "sk-1")},
		{"x-auth-token", metadata.Pairs("x-auth-token", "tok", "x-session-key", "sk-1")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			authn := &fakeAuthenticator{token: "tok"}
			interceptor := AuthUnary(authn, nil)

			resp, err := call(t, interceptor, metadata.NewIncomingContext(context.Background(), tc.md), "/asr.Service/Protected")
			require.NoError(t, err)
			assert.Equal(t, "archer", resp)
			assert.Equal(t, "sk-1", authn.gotKey)
		})
	}
}

func TestAuthUnary_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantCode codes.Code
		wantMsg  string
	}{
		{"token not found", auth.ErrTokenNotFound, codes.Unauthenticated, auth.ErrTokenNotFound.Code},
		{"evicted", auth.ErrSessionLimitEvicted, codes.Unauthenticated, auth.ErrSessionLimitEvicted.Code},
		{"denied", auth.ErrAccessDenied, codes.PermissionDenied, auth.ErrAccessDenied.Code},
		{"store down", fmt.Errorf("%w: %w", auth.ErrServiceUnavailable, context.DeadlineExceeded), codes.Unavailable, auth.ErrServiceUnavailable.Code},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			interceptor := AuthUnary(&fakeAuthenticator{err: tc.err}, nil)
			ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer tok"))

			_, err := call(t, interceptor, ctx, "/asr.Service/Protected")
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tc.wantCode, st.Code())
			assert.Equal(t, tc.wantMsg, st.Message())
		})
	}
}

func TestExtractBearer_Malformed(t *testing.T) {
	for _, v := range []string{"", "Basic abc", "Bear", "Token abc"} {
		assert.Empty(t, extractBearer(metadata.Pairs("authorization", v)), v)
	}
}
