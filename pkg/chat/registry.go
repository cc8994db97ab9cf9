package chat

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps provider identifiers to provider handles.
//
// Each provider is stored under its canonical name plus a normalized alias,
// so resolution succeeds regardless of the caller's representation. The
// registry is populated sequentially at startup and fixed afterwards; a
// single registration failure aborts router initialization.
type Registry struct {
	byKey map[string]Provider
	order []string
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Provider)}
}

// Register adds one provider under its canonical name and normalized alias.
func (r *Registry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("register provider: nil provider")
	}
	name := provider.Name()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("register provider: empty name")
	}

	alias := normalizeKey(name)
	if _, exists := r.byKey[alias]; exists {
		return fmt.Errorf("register provider %s: duplicate name", name)
	}

	r.byKey[name] = provider
	r.byKey[alias] = provider
	r.order = append(r.order, name)

	return nil
}

// Resolve returns the provider registered under identifier.
func (r *Registry) Resolve(identifier string) (Provider, error) {
	if provider, ok := r.byKey[identifier]; ok {
		return provider, nil
	}
	if provider, ok := r.byKey[normalizeKey(identifier)]; ok {
		return provider, nil
	}

	return nil, UnknownProviderError(identifier)
}

// Names returns the sorted public identifiers of registered chat providers.
//
// Normalized aliases and non-chat integrations never appear here.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.byKey[name].Kind() != KindChat {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// IsChatProvider reports whether name denotes a chat back-end.
//
// Only a registered non-chat integration makes this false; any other name,
// registered or not, counts as a chat provider.
func (r *Registry) IsChatProvider(name string) bool {
	provider, err := r.Resolve(name)
	if err != nil {
		return true
	}

	return provider.Kind() == KindChat
}

// All returns every registered provider in registration order, including
// non-chat integrations.
func (r *Registry) All() []Provider {
	providers := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		providers = append(providers, r.byKey[name])
	}

	return providers
}

// Len reports the number of registered providers, aliases excluded.
func (r *Registry) Len() int {
	return len(r.order)
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
