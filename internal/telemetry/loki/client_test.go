package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, status int) (*Client, *PushRequest) {
	t.Helper()
	got := &PushRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pushPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", "asr-auth")
	require.NoError(t, err)
	return c, got
}

func nanos(t *testing.T, s string) int64 {
	t.Helper()
	n, err := strconv.ParseInt(s, 10, 64)
	require.NoError(t, err)
	return n
}

func TestPush_GroupsStreamsByLabels(t *testing.T) {
	c, got := capture(t, http.StatusNoContent)

	late := []byte(`{"eventType":"login_failure","source":"http","code":"BAD_CREDENTIALS","username":"archer","createdAt":"2026-01-02T03:04:06Z"}`)
	early := []byte(`{"eventType":"login_failure","source":"http","code":"BAD_CREDENTIALS","username":"lana","createdAt":"2026-01-02T03:04:05Z"}`)
	other := []byte(`{"eventType":"logout","source":"http","username":"archer","createdAt":"2026-01-02T03:04:07Z"}`)
	require.NoError(t, c.Push(context.Background(), late, other, early))

	require.Len(t, got.Streams, 2)
	failures := got.Streams[0]
	assert.Equal(t, map[string]string{
		"job": "asr-auth", "event_type": "login_failure", "source": "http", "code": "BAD_CREDENTIALS",
	}, failures.Stream)
	require.Len(t, failures.Values, 2)
	assert.Equal(t, string(early), failures.Values[0][1], "entries are ordered by event time")
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).UnixNano(), nanos(t, failures.Values[0][0]))
	assert.Equal(t, string(late), failures.Values[1][1])

	assert.Equal(t, "logout", got.Streams[1].Stream["event_type"])
	assert.NotContains(t, got.Streams[1].Stream, "code")
	assert.NotContains(t, got.Streams[1].Stream, "username")
}

func TestPush_UnparseableLine(t *testing.T) {
	c, got := capture(t, http.StatusNoContent)
	before := time.Now()

	require.NoError(t, c.Push(context.Background(), []byte("not json")))
	require.Len(t, got.Streams, 1)
	assert.Equal(t, map[string]string{"job": "asr-auth"}, got.Streams[0].Stream)
	assert.GreaterOrEqual(t, nanos(t, got.Streams[0].Values[0][0]), before.UnixNano())
}

func TestPush_SanitizesLabels(t *testing.T) {
	c, got := capture(t, http.StatusNoContent)
	require.NoError(t, c.Push(context.Background(), []byte(`{"eventType":"a b","source":"http"}`)))
	assert.Equal(t, "a_b", got.Streams[0].Stream["event_type"])
}

func TestPush_Errors(t *testing.T) {
	c, _ := capture(t, http.StatusBadRequest)
	assert.Error(t, c.Push(context.Background(), []byte(`{}`)))
	assert.NoError(t, c.Push(context.Background()), "empty batch sends nothing")

	for _, bad := range []string{"", "localhost:3100", "://x"} {
		_, err := NewClient(bad, "asr-auth")
		assert.Error(t, err, bad)
	}
}
