// Package sample is a minimal plugin exercising the plugin contract.
package sample

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xerppy/xerppy/internal/platform/httpx"
	"github.com/xerppy/xerppy/internal/plugins"
)

// Plugin answers a ping under its own route prefix.
type Plugin struct {
	logger *slog.Logger
}

// New constructs the sample plugin.
func New() *Plugin {
	return &Plugin{}
}

// Name returns the plugin identifier used as its route prefix.
func (p *Plugin) Name() string { return "sample" }

// Init captures shared dependencies.
func (p *Plugin) Init(ctx context.Context, deps plugins.Deps) error {
	p.logger = deps.Logger
	return nil
}

// RegisterRoutes mounts the plugin's endpoints.
func (p *Plugin) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{
			"plugin": p.Name(),
			"status": "ok",
		})
	})
}

var _ plugins.Plugin = (*Plugin)(nil)
