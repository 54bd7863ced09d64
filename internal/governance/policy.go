package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rahul/puppetry/internal/steps"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of a step to be evaluated.
type Request struct {
	Kind      string
	Arguments string // the interpolated step as JSON
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates steps against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine is a basic implementation of PolicyEngine.
type DefaultPolicyEngine struct {
	DeniedKinds  map[string]bool
	DeniedRegex  []*regexp.Regexp
	AllowedHosts []string
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedKinds: make(map[string]bool),
		DeniedRegex: make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) DenyKind(kind string) {
	e.DeniedKinds[kind] = true
}

func (e *DefaultPolicyEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

// AllowHost restricts loadURL to the given hosts and their subdomains. With
// no allowed hosts every URL passes.
func (e *DefaultPolicyEngine) AllowHost(host string) {
	e.AllowedHosts = append(e.AllowedHosts, strings.ToLower(strings.TrimSpace(host)))
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedKinds[req.Kind] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Step '%s' is restricted by system policy", req.Kind),
		}, nil
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.Arguments) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Arguments match restricted pattern: %s", re.String()),
			}, nil
		}
	}

	if req.Kind == string(steps.KindLoadURL) && len(e.AllowedHosts) > 0 {
		var args struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal([]byte(req.Arguments), &args); err != nil {
			return Result{}, fmt.Errorf("parse step arguments: %w", err)
		}
		u, err := url.Parse(args.URL)
		if err != nil || !e.hostAllowed(u.Hostname()) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Host of %q is not in the allow list", args.URL),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}

func (e *DefaultPolicyEngine) hostAllowed(host string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	for _, allowed := range e.AllowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// Check adapts Evaluate to the interpreter's policy hook. Denials wrap
// steps.ErrStepDenied.
func (e *DefaultPolicyEngine) Check(ctx context.Context, kind, arguments string) error {
	res, err := e.Evaluate(ctx, Request{Kind: kind, Arguments: arguments})
	if err != nil {
		return err
	}
	if res.Effect == EffectDeny {
		return fmt.Errorf("%w: %s", steps.ErrStepDenied, res.Reason)
	}
	return nil
}
