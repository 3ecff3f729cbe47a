// Package request snapshots the HTTP request a captured error happened in.
//
// The host supplies a Provider, either through the request context
// (NewContext) or through the default registry (SetDefault, SetResolver).
// Nothing in this package returns an error to the caller: unreadable fields
// are logged and left empty.
package request

import (
	"context"
)

// Collection is a read-only key/value view over one part of a request, such
// as its headers or cookies. Keys may be of any type; Get is called with the
// string form of each key.
type Collection interface {
	Keys() []any
	Get(key string) any
}

// Principal identifies the authenticated user of a request.
type Principal interface {
	ID() string
	Name() string
}

// Provider exposes the request that is in scope when an error is captured.
// Every method is best-effort: implementations may return empty values, nil
// collections or errors, and may even panic.
type Provider interface {
	URL() string
	Method() string
	QueryString() string
	Headers() Collection
	Cookies() Collection
	ServerVariables() Collection
	FormFields() Collection
	Principal() (Principal, error)
	RemoteAddress() (string, error)
}

// BodyProvider is implemented by providers that can expose a raw request
// body. It is used for the snapshot data when no form fields were posted.
type BodyProvider interface {
	Body() string
}

// BasicPrincipal is a Principal with fixed values.
type BasicPrincipal struct {
	UserID   string
	UserName string
}

func (p BasicPrincipal) ID() string { return p.UserID }
func (p BasicPrincipal) Name() string { return p.UserName }

type providerKey struct{}

type principalKey struct{}

// NewContext returns a copy of ctx carrying p. A nil provider, including a
// typed nil such as NewHTTPProvider(nil), leaves ctx unchanged.
func NewContext(ctx context.Context, p Provider) context.Context {
	if isNil(p) {
		return ctx
	}
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the provider carried by ctx, if any.
func FromContext(ctx context.Context) (Provider, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(providerKey{}).(Provider)
	if !ok || isNil(p) {
		return nil, false
	}
	return p, true
}

// WithPrincipal returns a copy of ctx carrying the authenticated principal.
// HTTPProvider reads it back from the request context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p != nil
}
