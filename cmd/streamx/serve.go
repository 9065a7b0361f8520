// If you are AI: This file implements the serve command: load config, apply flag overrides, run until signalled.

package main

import (
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/logging"
	"streamx/internal/server"
)

const shutdownTimeout = 10 * time.Second

// serveCommand returns the serve command.
func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the RTMP ingest server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to the YAML configuration file", EnvVars: []string{"STREAMX_CONFIG"}},
			&cli.IntFlag{Name: "rtmp-port", Usage: "override server.rtmp_port"},
			&cli.IntFlag{Name: "http-port", Usage: "override server.http_port"},
			&cli.IntFlag{Name: "health-port", Usage: "override server.health_port"},
			&cli.IntFlag{Name: "max-streams", Usage: "override ingest.max_streams (0 = unlimited)"},
			&cli.StringFlag{Name: "segmenter", Usage: "override segmenter.kind (ffmpeg, record, discard)"},
			&cli.StringFlag{Name: "streams-dir", Usage: "override segmenter.streams_dir"},
			&cli.StringFlag{Name: "log-level", Usage: "override log.level"},
			&cli.StringFlag{Name: "log-format", Usage: "override log.format (json, console)"},
		},
		Action: serveAction,
	}
}

// serveAction runs the server until SIGINT or SIGTERM.
func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := server.New(cfg, logger, version)
	if err != nil {
		logger.Error("failed to create server", zap.Error(err))
		return cli.Exit("", 1)
	}
	if err := srv.Start(c.Context); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		return cli.Exit("", 1)
	}
	if err := server.NewShutdownHandler(c.Context, srv, shutdownTimeout).Wait(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		return cli.Exit("", 1)
	}
	return nil
}

// loadConfig reads --config (defaults when absent), applies flag overrides and validates.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyOverrides(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies explicitly set flags onto cfg.
func applyOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet("rtmp-port") {
		cfg.Server.RTMPPort = c.Int("rtmp-port")
	}
	if c.IsSet("http-port") {
		cfg.Server.HTTPPort = c.Int("http-port")
	}
	if c.IsSet("health-port") {
		cfg.Server.HealthPort = c.Int("health-port")
	}
	if c.IsSet("max-streams") {
		cfg.Ingest.MaxStreams = c.Int("max-streams")
	}
	if c.IsSet("segmenter") {
		cfg.Segmenter.Kind = c.String("segmenter")
	}
	if c.IsSet("streams-dir") {
		cfg.Segmenter.StreamsDir = c.String("streams-dir")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
}
