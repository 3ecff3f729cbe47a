package request

import (
	"sync/atomic"
)

// Resolver looks up the provider that is in scope for the whole process.
type Resolver func() Provider

// Registry holds a process-wide provider. The resolver runs on first use and
// its result, including a nil one, is kept until Reset. Two goroutines may
// both run the resolver on first use; the first stored result wins and both
// observe it. Resolvers must be free of side effects.
type Registry struct {
	resolver atomic.Pointer[Resolver]
	resolved atomic.Pointer[resolution]
}

type resolution struct {
	provider Provider
}

// NewRegistry creates a registry backed by resolver. A nil resolver resolves
// to no provider.
func NewRegistry(resolver Resolver) *Registry {
	r := &Registry{}
	if resolver != nil {
		r.resolver.Store(&resolver)
	}
	return r
}

// Provider returns the cached provider, resolving it on first use.
func (r *Registry) Provider() Provider {
	if res := r.resolved.Load(); res != nil {
		return res.provider
	}

	res := &resolution{}
	if fn := r.resolver.Load(); fn != nil && *fn != nil {
		res.provider = (*fn)()
	}
	if r.resolved.CompareAndSwap(nil, res) {
		return res.provider
	}
	return r.resolved.Load().provider
}

// Set stores p directly, bypassing the resolver.
func (r *Registry) Set(p Provider) {
	r.resolved.Store(&resolution{provider: p})
}

// SetResolver replaces the resolver and forgets any cached provider.
func (r *Registry) SetResolver(resolver Resolver) {
	if resolver == nil {
		r.resolver.Store(nil)
	} else {
		r.resolver.Store(&resolver)
	}
	r.resolved.Store(nil)
}

// Reset forgets the cached provider so the next use resolves again.
func (r *Registry) Reset() {
	r.resolved.Store(nil)
}

var defaultRegistry = NewRegistry(nil)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Default returns the provider of the process-wide registry.
func Default() Provider {
	return defaultRegistry.Provider()
}

// SetDefault stores p in the process-wide registry.
func SetDefault(p Provider) {
	defaultRegistry.Set(p)
}

// SetResolver replaces the resolver of the process-wide registry.
func SetResolver(resolver Resolver) {
	defaultRegistry.SetResolver(resolver)
}

// ResetDefault forgets the process-wide provider.
func ResetDefault() {
	defaultRegistry.Reset()
}
