// Package engine evaluates authorization policy with the in-process OPA Rego engine.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const allowQuery = "data.cuidame.authz.allow"

// roleRegoPolicy allows a request when the caller's role is in the allowed set.
const roleRegoPolicy = `package cuidame.authz

default allow := false

allow if {
	some r in input.allowed_roles
	r == input.role
}
`

// OPAEvaluator evaluates role policies using OPA Rego. The policy is compiled once and the
// prepared query is reused across calls.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the role policy. An extra module may override the default policy;
// it must define data.cuidame.authz.allow.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = roleRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile role policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare role policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// AllowRole reports whether role is allowed by the policy for the given allowed set.
// An empty role is never allowed.
func (e *OPAEvaluator) AllowRole(ctx context.Context, role string, allowed []string) (bool, error) {
	if role == "" {
		return false, nil
	}
	roles := make([]interface{}, len(allowed))
	for i, r := range allowed {
		roles[i] = r
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":          role,
		"allowed_roles": roles,
	}))
	if err != nil {
		return false, fmt.Errorf("eval role policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, errors.New("role policy returned no result")
	}
	allow, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("role policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return allow, nil
}

// HealthCheck evaluates the compiled policy against a fixed input. Does not touch the database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	allow, err := e.AllowRole(ctx, "health", []string{"health"})
	if err != nil {
		return err
	}
	if !allow {
		return errors.New("role policy denied health probe")
	}
	return nil
}
