// Package capability enforces the per-role action surface. A role can only
// act through its proxy, and the proxy only knows the actions the role is
// permitted; everything else fails with ErrCapabilityDenied before touching
// the computer.
package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coact/pkg/events"
	"coact/pkg/types"
)

type handlerFunc func(ctx context.Context, params map[string]any) (types.ActionResult, error)

// Proxy is a role's restricted view over the computer surface. Constructed
// once per role instantiation; the unrestricted surface reference never
// leaves this package.
type Proxy struct {
	role    types.AgentRole
	actions map[string]handlerFunc
	timeout time.Duration
	bc      *events.Broadcaster
	log     *zap.Logger
}

func newProxy(role types.AgentRole, timeout time.Duration, bc *events.Broadcaster, log *zap.Logger) *Proxy {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Proxy{
		role:    role,
		actions: make(map[string]handlerFunc),
		timeout: timeout,
		bc:      bc,
		log:     log,
	}
}

// Role returns the role this proxy was built for.
func (p *Proxy) Role() types.AgentRole { return p.role }

// Actions lists the permitted action names, for inclusion in the role's
// decision prompt.
func (p *Proxy) Actions() []string {
	names := make([]string, 0, len(p.actions))
	for name := range p.actions {
		names = append(names, name)
	}
	return names
}

// Allows reports whether the role may invoke the named action.
func (p *Proxy) Allows(name string) bool {
	_, ok := p.actions[name]
	return ok
}

// Invoke runs one permitted action with a bounded timeout. Actions outside
// the role's set fail with ErrCapabilityDenied and have no side effect.
// Underlying failures are propagated, never retried here.
func (p *Proxy) Invoke(ctx context.Context, name string, params map[string]any) (types.ActionResult, error) {
	handler, ok := p.actions[name]
	if !ok {
		return types.ActionResult{}, fmt.Errorf("%w: role %s cannot invoke %q",
			types.ErrCapabilityDenied, p.role, name)
	}

	if p.bc != nil {
		p.bc.Publish(events.FunctionCall(p.role, name, params))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type outcome struct {
		result types.ActionResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := handler(ctx, params)
		done <- outcome{result, err}
	}()

	select {
	case <-ctx.Done():
		p.log.Warn("action timed out",
			zap.String("role", string(p.role)),
			zap.String("action", name))
		return types.ActionResult{}, fmt.Errorf("%w: %s", types.ErrActionTimeout, name)
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, types.ErrStaleElementReference) {
				return out.result, out.err
			}
			return out.result, &types.ActionExecutionError{Action: name, Err: out.err}
		}
		return out.result, nil
	}
}

func (p *Proxy) register(name string, h handlerFunc) {
	p.actions[name] = h
}

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", key)
	}
	return s, nil
}

func intParam(params map[string]any, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("parameter %q must be a number", key)
	}
}
