// Package bootstrap wires a running system: the host environment, the
// lifecycle controller that owns the entry-point component and, when
// asked, the admin channel and declaration hot reload.
// Only logging is configured from the environment; everything else comes
// from the starter configuration.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	apihttp "github.com/artpar/deepgraph/adapters/http"
	"github.com/artpar/deepgraph/adapters/metrics"
	"github.com/artpar/deepgraph/config"
	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/host"
	"github.com/artpar/deepgraph/core/module"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Environment variable names read by the bootstrap.
const (
	EnvLogLevel  = "DEEPGRAPH_LOG_LEVEL"
	EnvLogFormat = "DEEPGRAPH_LOG_FORMAT"
	EnvAdminAddr = "DEEPGRAPH_ADMIN_ADDR"
	EnvAdminPort = "DEEPGRAPH_ADMIN_PORT"

	EnvAdminToken = "DEEPGRAPH_ADMIN_TOKEN"
)

// App is a running system.
type App struct {
	Logger     zerolog.Logger
	Host       *host.Host
	Metrics    *metrics.Collector
	Boot       *Boot
	HTTPServer *http.Server
	Holder     *config.Holder

	ctx context.Context
}

// Config configures an App.
type Config struct {
	// Boot configures the lifecycle controller.
	Boot BootConfig

	// Modules registers additional modules in the catalog.
	Modules func(*module.Catalog)

	// Metrics enables Prometheus metrics on Registry.
	Metrics  bool
	Registry *prometheus.Registry

	// AdminAddr enables the admin channel on this address.
	AdminAddr string

	// AdminToken guards the admin channel's invoke and lifecycle calls.
	// Empty falls back to DEEPGRAPH_ADMIN_TOKEN, then to the running
	// registry's token.
	AdminToken string

	// Watch enables hot reload of the loader's declarations from this
	// file.
	Watch string

	Version string
	Logger  *zerolog.Logger
}

// New creates an App. The system is not started.
func New(cfg Config) (*App, error) {
	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = SetupLoggerFromEnv()
	}

	a := &App{Logger: logger}

	a.Host = host.New(logger)
	CoreModules(a.Host.Modules)
	if cfg.Modules != nil {
		cfg.Modules(a.Host.Modules)
	}

	reg := cfg.Registry
	if cfg.Metrics || cfg.AdminAddr != "" {
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		a.Metrics = metrics.NewWithRegistry(reg)
		a.Host.Metrics = a.Metrics
		logger.Info().Msg("prometheus metrics enabled")
	}

	a.ctx = host.WithContext(context.Background(), a.Host)
	a.Boot = NewBoot(a.ctx, cfg.Boot)

	if cfg.AdminAddr != "" {
		handler := apihttp.NewHandler(apihttp.Config{
			Lifecycle: a.Boot,
			Gatherer:  reg,
			Token:     adminToken(cfg.AdminToken),
			Version:   cfg.Version,
			Logger:    logger,
		})
		a.HTTPServer = &http.Server{
			Addr:         cfg.AdminAddr,
			Handler:      handler.Router(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
	}

	if cfg.Watch != "" {
		holder, err := config.NewHolder(cfg.Watch, logger)
		if err != nil {
			return nil, fmt.Errorf("init hot reload: %w", err)
		}
		holder.SetMetrics(a.Metrics)
		holder.OnChange(a.reloadDeclarations)
		a.Holder = holder
	}

	return a, nil
}

// Context returns the context carrying the App's host.
func (a *App) Context() context.Context {
	return a.ctx
}

// Start starts the system.
func (a *App) Start() (any, error) {
	return a.Boot.Start(a.ctx, nil, "")
}

// Run starts the system, serves the admin channel when configured and
// blocks until SIGINT or SIGTERM, then shuts down.
func (a *App) Run() error {
	if _, err := a.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	if a.Holder != nil {
		if err := a.Holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to watch declarations")
		}
		a.Holder.WatchSignals()
	}

	errCh := make(chan error, 1)
	if a.HTTPServer != nil {
		go func() {
			a.Logger.Info().
				Str("addr", a.HTTPServer.Addr).
				Msg("starting admin server")
			if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown stops hot reload, the admin server and the system.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
	defer cancel()

	if a.Holder != nil {
		a.Holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("admin server shutdown error")
		}
	}

	if a.Boot.State() == Running {
		if _, err := a.Boot.Stop(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("system stop error")
			return err
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// reloadDeclarations merges a reloaded declaration table into the
// running system's loader.
func (a *App) reloadDeclarations(data any) {
	loader, err := edge.Get(a.Boot, edge.P("starter", "loader"))
	if err != nil {
		a.Logger.Error().Err(err).Msg("reload: loader lookup failed")
		return
	}
	l, ok := loader.(edge.Edge)
	if !ok {
		a.Logger.Warn().Msg("reload: system has no loader")
		return
	}
	if _, err := l.Invoke(a.ctx, edge.Do("initialize"), data, nil); err != nil {
		a.Logger.Error().Err(err).Msg("reload: declarations rejected")
		return
	}
	a.Logger.Info().Msg("declarations reloaded")
}

// SetupLoggerFromEnv configures zerolog from DEEPGRAPH_LOG_LEVEL and
// DEEPGRAPH_LOG_FORMAT ("console" or JSON).
func SetupLoggerFromEnv() zerolog.Logger {
	levelStr := os.Getenv(EnvLogLevel)
	if levelStr == "" {
		levelStr = "info"
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	format := os.Getenv(EnvLogFormat)
	if format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// AdminAddrFromEnv returns DEEPGRAPH_ADMIN_ADDR, or ":<DEEPGRAPH_ADMIN_PORT>"
// when only a port is set, or "".
func AdminAddrFromEnv() string {
	if addr := os.Getenv(EnvAdminAddr); addr != "" {
		return addr
	}
	if port := GetEnvInt(EnvAdminPort, 0); port > 0 {
		return ":" + strconv.Itoa(port)
	}
	return ""
}

func adminToken(token string) string {
	if token != "" {
		return token
	}
	return os.Getenv(EnvAdminToken)
}

// GetEnvInt returns an integer from env or default.
func GetEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
