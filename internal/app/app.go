package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/fieldgrid/internal/config"
	"github.com/vk/fieldgrid/internal/metrics"
	"github.com/vk/fieldgrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	registry   *registry.Registry
	gatherer   *prometheus.Registry
	metrics    *metrics.Metrics
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Results go to outW
// and log records to logW. Each App has its own logger, type registry and
// metrics registry.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	gatherer := prometheus.NewRegistry()
	m, err := metrics.New(gatherer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	reg := registry.Default()
	logger.Debug("Field types registered.", "count", len(reg.Types()))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		registry: reg,
		gatherer: gatherer,
		metrics:  m,
	}, nil
}

// Registry returns the application's field type registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Gatherer exposes the collected metrics.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.gatherer
}
