package interceptors

import (
	"context"
	"sync"
	"testing"
	"time"

	"asr-auth/internal/auth"
	"asr-auth/internal/logger"
	"asr-auth/internal/telemetry/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []*domain.AuthEvent
}

func (r *recordingEmitter) Emit(_ context.Context, e *domain.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEmitter) snapshot() []*domain.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.AuthEvent(nil), r.events...)
}

func TestTelemetryUnary_Emits(t *testing.T) {
	rec := &recordingEmitter{}
	interceptor := TelemetryUnary(rec, logger.Discard(), nil)
	ctx := WithPrincipal(context.Background(), &auth.Principal{Username: "archer"})

	_, err := interceptor(ctx, "req", &grpc.UnaryServerInfo{FullMethod: "/asr.Service/Do"},
		func(context.Context, interface{}) (interface{}, error) {
			return nil, status.Error(codes.PermissionDenied, "ACCESS_DENIED")
		})
	require.Error(t, err)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	ev := rec.snapshot()[0]
	assert.Equal(t, domain.EventGRPCRequest, ev.EventType)
	assert.Equal(t, "archer", ev.Username)
	assert.Equal(t, "/asr.Service/Do", ev.Path)
	assert.Equal(t, codes.PermissionDenied.String(), ev.Code)
	assert.Equal(t, "unknown", ev.Metadata["client_ip"])
}

func TestTelemetryUnary_SkipAndNil(t *testing.T) {
	rec := &recordingEmitter{}
	ok := func(context.Context, interface{}) (interface{}, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := TelemetryUnary(rec, nil, map[string]bool{info.FullMethod: true})(context.Background(), nil, info, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	resp, err = TelemetryUnary(nil, nil, nil)(context.Background(), nil, info, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
