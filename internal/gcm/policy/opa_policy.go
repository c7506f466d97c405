// Package policy decides whether an app may register for a sender, using OPA Rego.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"

	"device-checkin/internal/gcm/domain"
)

const query = "data.devicecheckin.sender"

// DefaultRegoPolicy allows every non-empty sender that is not on a deny list.
const DefaultRegoPolicy = `package devicecheckin.sender

default allow := false

allow if {
	input.sender != ""
	not denied
}

denied if {
	input.sender in input.denied_senders
}

denied if {
	input.app.package in input.denied_packages
}

reason := "sender denied" if denied

reason := "empty sender" if {
	input.sender == ""
	not denied
}
`

// ErrNoResult is returned when the policy query produces no decision document.
var ErrNoResult = errors.New("policy: query returned no result")

// Decision is the outcome of one sender check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Engine evaluates the sender policy. The policy is compiled once at construction.
type Engine struct {
	prepared       rego.PreparedEvalQuery
	deniedSenders  []string
	deniedPackages []string
}

// NewEngine compiles module (DefaultRegoPolicy when empty) with the given deny lists.
func NewEngine(ctx context.Context, module string, deniedSenders, deniedPackages []string) (*Engine, error) {
	if module == "" {
		module = DefaultRegoPolicy
	}
	prepared, err := rego.New(
		rego.Query(query),
		rego.Module("sender.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile sender policy: %w", err)
	}
	if deniedSenders == nil {
		deniedSenders = []string{}
	}
	if deniedPackages == nil {
		deniedPackages = []string{}
	}
	return &Engine{prepared: prepared, deniedSenders: deniedSenders, deniedPackages: deniedPackages}, nil
}

// LoadModule reads a Rego module from path; an empty path selects the default policy.
func LoadModule(path string) (string, error) {
	if path == "" {
		return DefaultRegoPolicy, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read sender policy: %w", err)
	}
	return string(b), nil
}

// Evaluate returns whether app may register for sender.
func (e *Engine) Evaluate(ctx context.Context, app domain.AppIdentity, sender string) (Decision, error) {
	input := map[string]interface{}{
		"sender": sender,
		"app": map[string]interface{}{
			"package":          app.PackageName,
			"signature_digest": app.SignatureDigest,
			"version_code":     int(app.VersionCode),
		},
		"denied_senders":  e.deniedSenders,
		"denied_packages": e.deniedPackages,
	}
	rs, err := e.prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("eval sender policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, ErrNoResult
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, ErrNoResult
	}
	var d Decision
	if v, ok := doc["allow"].(bool); ok {
		d.Allowed = v
	}
	if v, ok := doc["reason"].(string); ok {
		d.Reason = v
	}
	if !d.Allowed {
		log.Printf("policy: denied app=%s sender=%q reason=%q", app.PackageName, sender, d.Reason)
	}
	return d, nil
}

// HealthCheck evaluates a known-good input against the compiled policy.
func (e *Engine) HealthCheck(ctx context.Context) error {
	_, err := e.Evaluate(ctx, domain.AppIdentity{PackageName: "health.check"}, "0")
	return err
}
