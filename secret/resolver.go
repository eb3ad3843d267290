package secret

import (
	"context"
	"fmt"
	"strings"
)

const refPrefix = "secretref:"

// Resolver resolves configured values using registered providers.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. In strict mode, missing environment
// variables and empty provider results are errors; otherwise they resolve to
// the empty string.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// DefaultResolver returns a lenient resolver with the env and file providers.
func DefaultResolver() *Resolver {
	return NewResolver(false, NewEnvProvider(), NewFileProvider())
}

// Register registers a provider with the resolver.
func (r *Resolver) Register(provider Provider) {
	if provider == nil {
		return
	}
	r.providers[provider.Name()] = provider
}

// ResolveValue resolves value to its final string.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	value = strings.TrimSpace(value)

	if providerName, ref, ok := ParseSecretRef(value); ok {
		return r.resolveRef(ctx, providerName, ref)
	}

	if r.strict {
		return ExpandEnvStrict(value)
	}
	return strings.TrimSpace(ExpandEnv(value)), nil
}

// Func returns a function that resolves value on every call.
func (r *Resolver) Func(value string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return r.ResolveValue(ctx, value)
	}
}

// ParseSecretRef parses a full secret reference of the form:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	if !strings.HasPrefix(value, refPrefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, refPrefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (r *Resolver) resolveRef(ctx context.Context, providerName, ref string) (string, error) {
	provider, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("secret provider %q is not registered", providerName)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && resolved == "" {
		return "", fmt.Errorf("secret provider %q returned empty value", providerName)
	}
	return resolved, nil
}
