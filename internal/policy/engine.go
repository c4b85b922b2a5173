// Package policy evaluates the API access policy with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the outcome of an access check.
type Decision string

const (
	DecisionAllow      Decision = "allow"
	DecisionMissingKey Decision = "missing_key"
	DecisionInvalidKey Decision = "invalid_key"
)

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d == DecisionAllow }

// Message returns the client-facing explanation of a denial.
func (d Decision) Message() string {
	switch d {
	case DecisionMissingKey:
		return "Missing API key. Please provide X-API-Key header or Authorization Bearer token."
	case DecisionInvalidKey:
		return "Invalid API key."
	default:
		return ""
	}
}

// Request is the input of one access check.
type Request struct {
	Path   string
	Public bool
	APIKey string
}

// Engine is the OPA policy engine.
type Engine struct {
	query       rego.PreparedEvalQuery
	allowedKeys []interface{}
}

// NewEngine prepares policyContent, which must define data.access_policy.decision,
// against the configured allow-list. An empty list admits any non-empty key.
func NewEngine(ctx context.Context, policyContent string, allowedKeys []string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.access_policy.decision"),
		rego.Module("access_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	keys := make([]interface{}, 0, len(allowedKeys))
	for _, k := range allowedKeys {
		keys = append(keys, k)
	}
	return &Engine{query: query, allowedKeys: keys}, nil
}

// OpenMode reports whether no allow-list is configured.
func (e *Engine) OpenMode() bool {
	return len(e.allowedKeys) == 0
}

// Evaluate checks one request against the policy.
func (e *Engine) Evaluate(ctx context.Context, req Request) (Decision, error) {
	input := map[string]interface{}{
		"path":         req.Path,
		"public":       req.Public,
		"api_key":      req.APIKey,
		"allowed_keys": e.allowedKeys,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionInvalidKey, nil
	}

	s, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected policy result %T", results[0].Expressions[0].Value)
	}
	return Decision(s), nil
}

// DefaultPolicy is the built-in access policy.
const DefaultPolicy = `
package access_policy

import future.keywords.if
import future.keywords.in

default decision := "invalid_key"

decision := "allow" if {
	input.public
} else := "missing_key" if {
	input.api_key == ""
} else := "allow" if {
	count(input.allowed_keys) == 0
} else := "allow" if {
	input.api_key in input.allowed_keys
}
`
