package router

import (
	"fmt"

	"github.com/campusdesk/campusdesk/pkg/config"
)

// Route is a generator provider to try, in order.
type Route struct {
	Provider config.ProviderConfig
}

// Router resolves the configured generator providers into an ordered
// fallback chain.
type Router struct {
	cfg config.GeneratorConfig
}

// New creates a Router from the generator configuration.
func New(cfg config.GeneratorConfig) *Router {
	return &Router{cfg: cfg}
}

// Resolve returns the ordered list of routes to try. When a fallback order
// is configured its names are followed and unknown names are skipped;
// otherwise providers are tried in configuration order. Providers without an
// API key are never routed to.
func (r *Router) Resolve() ([]Route, error) {
	if len(r.cfg.Providers) == 0 {
		return nil, fmt.Errorf("no generator providers configured")
	}

	// Build provider index by name
	providerIndex := make(map[string]config.ProviderConfig, len(r.cfg.Providers))
	for _, p := range r.cfg.Providers {
		providerIndex[p.Name] = p
	}

	order := r.cfg.Fallback
	if len(order) == 0 {
		for _, p := range r.cfg.Providers {
			order = append(order, p.Name)
		}
	}

	var routes []Route
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		provider, ok := providerIndex[name]
		if !ok || seen[name] || provider.APIKey == "" {
			continue
		}
		seen[name] = true
		routes = append(routes, Route{Provider: provider})
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("fallback %v: no usable providers", order)
	}
	return routes, nil
}
