package providers

import (
	"context"
	"sort"
	"strings"

	"collate/internal/config"
)

// Adapter fetches provider records by provider-native id.
type Adapter interface {
	Name() string
	FetchByID(ctx context.Context, id string) (*Record, error)
}

// Registry holds the configured adapters and answers them in source
// priority order.
type Registry struct {
	cfg      *config.Config
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry bound to the config that defines
// provider priorities and enablement.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:      cfg,
		adapters: make(map[string]Adapter),
	}
}

// Register adds or replaces an adapter under its lowercased name.
func (r *Registry) Register(adapter Adapter) {
	r.adapters[strings.ToLower(adapter.Name())] = adapter
}

// Adapter looks up an enabled adapter by name.
func (r *Registry) Adapter(name string) (Adapter, bool) {
	name = strings.ToLower(name)
	adapter, ok := r.adapters[name]
	if !ok || !r.cfg.ProviderEnabled(name) {
		return nil, false
	}
	return adapter, true
}

// Ordered returns the enabled adapters sorted by configured priority,
// then name for stability.
func (r *Registry) Ordered() []Adapter {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		if r.cfg.ProviderEnabled(name) {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := r.cfg.ProviderPriority(names[i]), r.cfg.ProviderPriority(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	out := make([]Adapter, len(names))
	for i, name := range names {
		out[i] = r.adapters[name]
	}
	return out
}

// Priority returns the configured priority of a provider name.
func (r *Registry) Priority(name string) int {
	return r.cfg.ProviderPriority(name)
}
