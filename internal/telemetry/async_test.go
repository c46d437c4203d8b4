package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"asr-auth/internal/logger"
	"asr-auth/internal/telemetry/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*domain.AuthEvent
	emitErr error
	done    chan struct{}
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return m.emitErr
}

func (m *mockEventEmitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestEmitAsync_NilEmitterOrEvent(t *testing.T) {
	// Should not panic.
	EmitAsync(nil, logger.Discard(), &domain.AuthEvent{EventType: "test"})
	EmitAsync(&mockEventEmitter{}, logger.Discard(), nil)
}

func TestEmitAsync_Emits(t *testing.T) {
	emitter := &mockEventEmitter{done: make(chan struct{}, 1)}
	EmitAsync(emitter, logger.Discard(), &domain.AuthEvent{EventType: domain.EventLoginSuccess})

	select {
	case <-emitter.done:
	case <-time.After(time.Second):
		t.Fatal("event was not emitted")
	}
	if emitter.count() != 1 {
		t.Fatalf("expected 1 event, got %d", emitter.count())
	}
}

func TestEmitAsync_ErrorIsLogged(t *testing.T) {
	emitter := &mockEventEmitter{done: make(chan struct{}, 1), emitErr: errors.New("kafka down")}
	EmitAsync(emitter, logger.Discard(), &domain.AuthEvent{EventType: domain.EventLogout})
	select {
	case <-emitter.done:
	case <-time.After(time.Second):
		t.Fatal("event was not emitted")
	}
}

func TestMulti(t *testing.T) {
	a := &mockEventEmitter{}
	b := &mockEventEmitter{emitErr: errors.New("boom")}
	m := Multi(a, nil, b)

	err := m.Emit(context.Background(), &domain.AuthEvent{EventType: domain.EventHTTPRequest})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if a.count() != 1 || b.count() != 1 {
		t.Errorf("every emitter should see the event: a=%d b=%d", a.count(), b.count())
	}
	if err := Multi().Emit(context.Background(), &domain.AuthEvent{}); err != nil {
		t.Errorf("empty Multi should not fail: %v", err)
	}
}
