package api

import (
	"context"
	"fmt"
)

// Spec describes one catalog command: its wire name, snake-cased
// alias, preferred dispatch method and ordered field list. Field order
// is the positional-argument binding order.
type Spec struct {
	Name   string
	Alias  string
	Method Method
	Fields []string

	// FileField names the multipart file part for upload commands.
	FileField string
}

// Bind merges positional and named arguments into a wire parameter
// map following the catalog binding rule: positional argument i binds
// to field i; a field bound both ways is an error; surplus positionals
// are an error; surplus named arguments pass through for forward
// compatibility. Nil values are dropped.
func (s *Spec) Bind(args []any, named map[string]any) (map[string]any, error) {
	if len(args) > len(s.Fields) {
		return nil, &ParamError{
			Command: s.Name,
			Reason:  fmt.Sprintf("takes %d positional arguments, got %d", len(s.Fields), len(args)),
		}
	}

	params := make(map[string]any, len(args)+len(named))
	for k, v := range named {
		params[k] = v
	}
	for i, v := range args {
		field := s.Fields[i]
		if _, dup := named[field]; dup {
			return nil, &ParamError{
				Command: s.Name,
				Field:   field,
				Reason:  "given both positionally and by name",
			}
		}
		params[field] = v
	}
	for k, v := range params {
		if v == nil {
			delete(params, k)
		}
	}
	return params, nil
}

// Call binds arguments and invokes the command on a provider using
// its preferred method.
func (s *Spec) Call(ctx context.Context, p Provider, args []any, named map[string]any) (*Response, error) {
	return s.CallMethod(ctx, p, s.Method, args, named)
}

// CallMethod is Call with an explicit dispatch method, for the paired
// read/write commands.
func (s *Spec) CallMethod(ctx context.Context, p Provider, method Method, args []any, named map[string]any) (*Response, error) {
	params, err := s.Bind(args, named)
	if err != nil {
		return nil, err
	}
	return p.CallAPI(ctx, s.Name, method, params)
}

// Proxy is the call-surface sugar over a command spec: Get for
// read-style commands, Set for write-style, and Partial for paired
// read/write commands. Driving a proxy against its declared direction
// fails with ErrWrongMethod.
type Proxy struct {
	provider Provider
	spec     *Spec
}

// NewProxy builds a proxy for a command spec.
func NewProxy(p Provider, spec *Spec) Proxy {
	return Proxy{provider: p, spec: spec}
}

// Spec returns the command spec behind the proxy.
func (p Proxy) Spec() *Spec { return p.spec }

// Get invokes a read-style command with positional arguments.
func (p Proxy) Get(ctx context.Context, args ...any) (*Response, error) {
	if p.spec.Method != MethodGet {
		return nil, fmt.Errorf("%s: get: %w", p.spec.Alias, ErrWrongMethod)
	}
	return p.spec.CallMethod(ctx, p.provider, MethodGet, args, nil)
}

// Set invokes a write-style command with positional arguments.
func (p Proxy) Set(ctx context.Context, args ...any) (*Response, error) {
	if p.spec.Method != MethodPost && p.spec.Method != MethodMultipart {
		return nil, fmt.Errorf("%s: set: %w", p.spec.Alias, ErrWrongMethod)
	}
	return p.spec.CallMethod(ctx, p.provider, p.spec.Method, args, nil)
}

// Named invokes the command with named arguments only.
func (p Proxy) Named(ctx context.Context, named map[string]any) (*Response, error) {
	return p.spec.Call(ctx, p.provider, nil, named)
}

// Partial applies the common arguments of a paired command and
// returns a pair exposing both directions.
func (p Proxy) Partial(args ...any) PartialProxy {
	return PartialProxy{provider: p.provider, spec: p.spec, partial: args}
}

// PartialProxy is a paired command with its common arguments applied.
type PartialProxy struct {
	provider Provider
	spec     *Spec
	partial  []any
}

// Get invokes the read half of the pair.
func (p PartialProxy) Get(ctx context.Context, args ...any) (*Response, error) {
	if p.spec.Method != MethodRestGet {
		return nil, fmt.Errorf("%s: get: %w", p.spec.Alias, ErrWrongMethod)
	}
	return p.spec.CallMethod(ctx, p.provider, MethodRestGet, append(p.partial[:len(p.partial):len(p.partial)], args...), nil)
}

// Set invokes the write half of the pair.
func (p PartialProxy) Set(ctx context.Context, args ...any) (*Response, error) {
	if p.spec.Method != MethodRestGet {
		return nil, fmt.Errorf("%s: set: %w", p.spec.Alias, ErrWrongMethod)
	}
	return p.spec.CallMethod(ctx, p.provider, MethodRestPost, append(p.partial[:len(p.partial):len(p.partial)], args...), nil)
}
