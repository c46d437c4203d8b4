package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const policyQuery = "data.asr.authz.allow"

// DefaultPolicy lets any authenticated principal through except under /admin and the gRPC
// channelz service, which need ROLE_ADMIN.
const DefaultPolicy = `package asr.authz

default allow := false

admin_path if startswith(input.path, "/admin")

admin_path if startswith(input.path, "/grpc.channelz.")

allow if not admin_path

allow if {
	admin_path
	"ROLE_ADMIN" in input.authorities
}
`

// OPAEvaluator evaluates the authorization policy with OPA Rego. The policy is compiled once.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (DefaultPolicy when empty). The policy must define
// data.asr.authz.allow.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// LoadPolicyFile reads a Rego policy from path. An empty path yields the default policy.
func LoadPolicyFile(path string) (string, error) {
	if path == "" {
		return DefaultPolicy, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read policy: %w", err)
	}
	return string(b), nil
}

// Allow reports whether the policy allows in. An undefined result denies.
func (e *OPAEvaluator) Allow(ctx context.Context, in Input) (bool, error) {
	authorities := in.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	input := map[string]interface{}{
		"method":      in.Method,
		"path":        in.Path,
		"username":    in.Username,
		"authorities": authorities,
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	return rs.Allowed(), nil
}

// HealthCheck verifies the compiled policy evaluates to a decision. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"method": "GET", "path": "/", "username": "", "authorities": []string{},
	}))
	if err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}
