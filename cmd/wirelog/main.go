// Command wirelog runs a demo HTTP service with structured access logging
// on every request.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/wirelog/wirelog/internal/accesslog"
	"github.com/wirelog/wirelog/internal/config"
	"github.com/wirelog/wirelog/internal/server"
)

const shutdownTimeout = 5 * time.Second

type options struct {
	Config  string `short:"c" long:"config" description:"Path to TOML configuration file"`
	Socket  string `long:"socket" description:"Unix socket path to listen on"`
	HTTP    string `long:"http" description:"HTTP address to listen on" default:"127.0.0.1:8080"`
	Verbose bool   `short:"v" long:"verbose" description:"Enable debug logging"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "path", opts.Config, "error", err)
		os.Exit(1)
	}

	level := config.ParseLevel(cfg.Server.LogLevel)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	sink := accesslog.NewSlogSink(logger)

	var srv *server.Server
	if opts.Socket != "" {
		srv = server.NewWithSocket(cfg, sink, opts.Socket)
	} else {
		srv = server.NewWithHTTPAddress(cfg, sink, opts.HTTP)
	}

	done := srv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			slog.Error("Server terminated", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Stop(ctx)
	}
}

// loadConfig loads the TOML config when a path is given, otherwise falls
// back to the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := &config.Config{}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}
