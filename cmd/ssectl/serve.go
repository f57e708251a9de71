package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/kbukum/ssekit/bootstrap"
	"github.com/kbukum/ssekit/config"
	"github.com/kbukum/ssekit/logger"
	"github.com/kbukum/ssekit/observability"
	"github.com/kbukum/ssekit/server"
	"github.com/kbukum/ssekit/sse"
)

// ServeConfig is the configuration of `ssectl serve`.
type ServeConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	SSE           sse.Config           `yaml:"sse" mapstructure:"sse"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *ServeConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.SSE.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *ServeConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.SSE.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "", "path to config.yml")
	envFile := fs.String("env", "", "path to .env")
	port := fs.Int("port", 0, "listen port (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg ServeConfig
	opts := []config.LoaderOption{config.WithEnvPrefix("SSECTL")}
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return err
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	if err := setupServe(context.Background(), app); err != nil {
		return err
	}
	return app.Run(context.Background())
}

// setupServe builds the registry, the HTTP server and telemetry and
// registers them on app. The registry is registered first so it stops
// after the server has stopped accepting streams.
func setupServe(ctx context.Context, app *bootstrap.App[*ServeConfig]) error {
	cfg := app.Cfg
	log := app.Logger

	if cfg.Observability.Enabled {
		tel, err := newTelemetry(ctx, cfg.Observability)
		if err != nil {
			return err
		}
		if err := app.RegisterComponent(tel); err != nil {
			return err
		}
	}

	metrics, err := observability.NewSSEMetrics(observability.Meter(serviceName))
	if err != nil {
		return fmt.Errorf("sse metrics: %w", err)
	}

	reg := sse.NewRegistry[string](
		sse.WithConfig(cfg.SSE),
		sse.WithLogger(log),
		sse.WithMetrics(metrics),
	)
	reg.OnConnect(func(id string) {
		log.Info("Client connected", map[string]interface{}{logger.FieldClientID: id})
	})
	reg.OnDisconnect(func(id string) {
		log.Info("Client disconnected", map[string]interface{}{logger.FieldClientID: id})
	})

	srv := server.New(cfg.Server, log)
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll)
	srv.OnShutdown(func() { _ = reg.Close() })
	for _, rt := range registerRoutes(srv.GinEngine(), reg, log) {
		app.Summary.TrackRoute(rt.method, rt.path, rt.name)
	}

	app.OnReady(func(context.Context) error {
		log.Info("Accepting event streams", map[string]interface{}{
			"addr": srv.Addr(),
			"path": cfg.SSE.Path,
		})
		return nil
	})
	app.OnStop(func(context.Context) error { return drain(reg, log) })

	if err := app.RegisterComponent(sse.NewComponent(reg)); err != nil {
		return err
	}
	return app.RegisterComponent(server.NewComponent(srv))
}

// shutdownEvent is broadcast to every client before the registry closes.
const shutdownEvent = "shutdown"

// drain tells every connected client the server is going away and then
// closes the registry. Clients that fail to receive the notice are logged
// and closed all the same.
func drain(reg *sse.Registry[string], log *logger.Logger) error {
	clients := reg.Len()
	if err := reg.Broadcast(shutdownEvent, "server shutting down"); err != nil {
		log.Warn("Shutdown notice not delivered to every client", map[string]interface{}{
			logger.FieldClients: clients,
			logger.FieldError:   err.Error(),
		})
	}
	log.Info("Draining event streams", map[string]interface{}{logger.FieldClients: clients})
	return reg.Close()
}
