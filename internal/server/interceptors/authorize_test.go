package interceptors

import (
	"context"
	"errors"
	"testing"

	"asr-auth/internal/auth"
	"asr-auth/internal/policy/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type recordingEvaluator struct {
	allow bool
	err   error
	got   engine.Input
}

func (e *recordingEvaluator) Allow(_ context.Context, in engine.Input) (bool, error) {
	e.got = in
	return e.allow, e.err
}

type deniedAudit struct{ resources []string }

func (a *deniedAudit) LogEvent(_ context.Context, _, _, resource, _ string) {
	a.resources = append(a.resources, resource)
}

const channelzMethod = "/grpc.channelz.v1.Channelz/GetServers"

func TestAuthorizeUnary(t *testing.T) {
	admin := WithPrincipal(context.Background(), &auth.Principal{Username: "lana", Authorities: []string{"ROLE_ADMIN"}})

	t.Run("allowed", func(t *testing.T) {
		eval := &recordingEvaluator{allow: true}
		resp, err := call(t, AuthorizeUnary(eval, nil, nil, nil), admin, channelzMethod)
		require.NoError(t, err)
		assert.Equal(t, "lana", resp)
		assert.Equal(t, engine.Input{Method: "POST", Path: channelzMethod, Username: "lana", Authorities: []string{"ROLE_ADMIN"}}, eval.got)
	})

	t.Run("denied is audited", func(t *testing.T) {
		al := &deniedAudit{}
		_, err := call(t, AuthorizeUnary(&recordingEvaluator{}, nil, al, nil), admin, channelzMethod)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
		assert.Equal(t, "ACCESS_DENIED", status.Convert(err).Message())
		assert.Equal(t, []string{channelzMethod}, al.resources)
	})

	t.Run("policy failure", func(t *testing.T) {
		_, err := call(t, AuthorizeUnary(&recordingEvaluator{err: errors.New("boom")}, nil, nil, nil), admin, channelzMethod)
		assert.Equal(t, codes.Unavailable, status.Code(err))
	})

	t.Run("no principal", func(t *testing.T) {
		_, err := call(t, AuthorizeUnary(&recordingEvaluator{allow: true}, nil, nil, nil), context.Background(), channelzMethod)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("public method skips policy", func(t *testing.T) {
		eval := &recordingEvaluator{}
		public := map[string]bool{"/grpc.health.v1.Health/Check": true}
		_, err := call(t, AuthorizeUnary(eval, public, nil, nil), context.Background(), "/grpc.health.v1.Health/Check")
		require.NoError(t, err)
		assert.Empty(t, eval.got.Path)
	})
}
