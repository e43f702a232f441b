// Package main provides the entry point for pointerd-server.
//
// pointerd-server streams pointer movement and clicks to remote clients
// over encrypted UDP sessions, with an optional HTTP control API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yndnr/pointerd/internal/core/pointer"
	"github.com/yndnr/pointerd/internal/infra/buildinfo"
	"github.com/yndnr/pointerd/internal/infra/confloader"
	"github.com/yndnr/pointerd/internal/infra/shutdown"
	"github.com/yndnr/pointerd/internal/protocol"
	"github.com/yndnr/pointerd/internal/server/config"
	"github.com/yndnr/pointerd/internal/server/httpserver"
	"github.com/yndnr/pointerd/internal/server/udpserver"
	"github.com/yndnr/pointerd/internal/telemetry/logger"
	"github.com/yndnr/pointerd/internal/telemetry/metric"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		listenAddr  = flag.String("listen", "", "UDP listen address (overrides server.listen_addr)")
		logLevel    = flag.String("log-level", "", "Log level (overrides log.level)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pointerd-server %s\n", buildinfo.String())
		return nil
	}

	overrides := map[string]any{}
	if *listenAddr != "" {
		overrides["server.listen_addr"] = *listenAddr
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}

	loader := newLoader(*configFile, overrides)
	cfg, err := loadConfig(loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting pointerd-server",
		"version", buildinfo.Get().Version,
		"commit", buildinfo.Get().Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	codec, err := config.NewCodec(cfg)
	if err != nil {
		return fmt.Errorf("init codec: %w", err)
	}
	tokens, err := config.ToTokens(&cfg.Protocol)
	if err != nil {
		return fmt.Errorf("init vocabulary: %w", err)
	}
	vocab, err := protocol.NewVocabulary(tokens)
	if err != nil {
		return fmt.Errorf("init vocabulary: %w", err)
	}

	metrics := metric.NewRegistry()
	hub := pointer.NewHub()
	sensitivity := pointer.NewSensitivity(cfg.Session.Sensitivity)

	udp := udpserver.New(config.ToUDPConfig(cfg, sensitivity), codec, vocab, hub, log, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hooks run in reverse order: HTTP first, then the certificate
	// watcher, then UDP, then the config watcher.
	shutdownHandler := shutdown.NewHandler(shutdownTimeout)

	r := &reloader{loader: loader, current: cfg, sensitivity: sensitivity, log: log}
	shutdownHandler.OnReload(r.reload)
	if *configFile != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
		if err != nil {
			return fmt.Errorf("init config watcher: %w", err)
		}
		if err := watcher.Watch(*configFile); err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		watcher.OnChange(func(string) { r.reload() })
		watcher.StartAsync()
		shutdownHandler.OnShutdown(func(context.Context) error {
			return watcher.Stop()
		})
	}

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down UDP server")
		return udp.Shutdown(ctx)
	})
	go func() {
		if err := udp.ListenAndServe(ctx); err != nil {
			log.Error("UDP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	if cfg.Server.HTTP.Enabled {
		var opts []httpserver.Option
		tlsConfig, certs, err := config.NewTLS(&cfg.Server.HTTP.TLS, log)
		if err != nil {
			return fmt.Errorf("init control API TLS: %w", err)
		}
		if certs != nil {
			opts = append(opts, httpserver.WithTLS(tlsConfig))
			certs.StartAsync()
			shutdownHandler.OnShutdown(func(context.Context) error {
				return certs.Stop()
			})
		}

		router := httpserver.NewRouter(config.ToRouterConfig(cfg, udp, hub, metrics, log))
		httpServer := httpserver.New(cfg.Server.HTTP.Addr, router, opts...)

		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down HTTP server")
			return httpServer.Shutdown(ctx)
		})
		go func() {
			log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr, "tls", httpServer.TLS())
			if err := httpServer.ListenAndServe(); err != nil {
				log.Error("HTTP server error", "error", err)
				shutdownHandler.Trigger()
			}
		}()
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

func newLoader(configFile string, overrides map[string]any) *confloader.Loader {
	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	return confloader.NewLoader(opts...)
}

// loadConfig loads configuration over the defaults and validates it.
func loadConfig(loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (*slog.Logger, error) {
	lc := config.ToLoggerConfig(&cfg.Log)
	lc.Output = os.Stdout

	log, err := logger.New(lc)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	return log, nil
}
