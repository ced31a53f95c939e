// Package plugins provides the explicit plugin surface of the application.
// Plugins are registered as a concrete list at the composition point; there
// is no runtime discovery.
package plugins

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the shared resources handed to plugins at initialization.
type Deps struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
}

// Plugin is the contract every plugin implements. Init runs once at
// startup before routes are mounted; RegisterRoutes receives a router
// already scoped to the plugin's own path prefix.
type Plugin interface {
	Name() string
	Init(ctx context.Context, deps Deps) error
	RegisterRoutes(r chi.Router)
}

// Registry holds the ordered list of registered plugins.
type Registry struct {
	logger  *slog.Logger
	plugins []Plugin
	byName  map[string]Plugin
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger, byName: make(map[string]Plugin)}
}

// Register appends a plugin. Names must be unique.
func (reg *Registry) Register(p Plugin) error {
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugins: plugin name required")
	}
	if _, exists := reg.byName[name]; exists {
		return fmt.Errorf("plugins: duplicate plugin %q", name)
	}
	reg.byName[name] = p
	reg.plugins = append(reg.plugins, p)
	return nil
}

// Init initializes plugins in registration order. The first failure
// aborts startup.
func (reg *Registry) Init(ctx context.Context, deps Deps) error {
	for _, p := range reg.plugins {
		if err := p.Init(ctx, deps); err != nil {
			return fmt.Errorf("plugins: init %q: %w", p.Name(), err)
		}
		if reg.logger != nil {
			reg.logger.Info("plugin initialized", slog.String("plugin", p.Name()))
		}
	}
	return nil
}

// MountRoutes mounts every plugin under /plugins/<name>.
func (reg *Registry) MountRoutes(r chi.Router) {
	for _, p := range reg.plugins {
		r.Route("/plugins/"+p.Name(), p.RegisterRoutes)
	}
}

// Names returns the registered plugin names in order.
func (reg *Registry) Names() []string {
	names := make([]string, len(reg.plugins))
	for i, p := range reg.plugins {
		names[i] = p.Name()
	}
	return names
}

// Get returns a plugin by name, or nil.
func (reg *Registry) Get(name string) Plugin {
	return reg.byName[name]
}
