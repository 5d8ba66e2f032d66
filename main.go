// Command relayhub serves two minimal pub/sub text relays over TCP,
// sharing one wire protocol: key:value header lines terminated by a
// blank line (CRLFCRLF).
//
//	relayhub pull --port 8005
//	relayhub push --port 8005 --gateway-addr :8081
//
// Pull mode keeps a bounded per-room history that clients poll with a
// last-check timestamp cursor. Push mode keeps live subscribers per
// room and fans broadcasts out to them immediately, excluding the
// sender. Push mode can also expose its rooms over a websocket/HTTP
// gateway.
//
// Everything is as ephemeral as can be: nothing survives a restart,
// and delivery is best-effort.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "relayhub:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "relayhub",
		Usage: "pub/sub text relays over TCP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML config file",
				Sources: cli.EnvVars("RELAYHUB_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "bind address",
				Sources: cli.EnvVars("RELAYHUB_HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "listen port",
				Sources: cli.EnvVars("RELAYHUB_PORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("RELAYHUB_LOG_LEVEL"),
				Value:   "info",
			},
			&cli.DurationFlag{
				Name:  "idle-timeout",
				Usage: "drop connections idle for this long (0 disables)",
			},
			&cli.DurationFlag{
				Name:  "metrics-interval",
				Usage: "interval between metrics reports",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "pull",
				Usage: "serve the history store polled with timestamp cursors",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "history-limit",
						Usage: "messages kept per room",
					},
				},
				Action: runPull,
			},
			{
				Name:  "push",
				Usage: "serve live rooms with immediate fan-out",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "gateway-addr",
						Usage: "websocket/HTTP gateway address (empty disables)",
					},
					&cli.StringFlag{
						Name:  "origin",
						Usage: "gateway checks websocket Origin headers against this scheme://host[:port]",
					},
				},
				Action: runPush,
			},
		},
	}
}

func runPull(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("history-limit") {
		cfg.HistoryLimit = int(cmd.Int("history-limit"))
	}

	store := newStore(cfg.HistoryLimit)
	sessLog := logger.With().Str("component", "pull").Logger()
	srv := newServer(cfg.addr(), time.Duration(cfg.IdleTimeout), func(out frameWriter) session {
		return newPullSession(out, store, sessLog)
	}, logger)

	return serve(ctx, cfg, srv, nil, logger)
}

func runPush(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("gateway-addr") {
		cfg.Gateway.Addr = cmd.String("gateway-addr")
	}
	if cmd.IsSet("origin") {
		cfg.Gateway.Origin = cmd.String("origin")
	}

	h := newHouse(logger.With().Str("component", "house").Logger())
	sessLog := logger.With().Str("component", "push").Logger()
	srv := newServer(cfg.addr(), time.Duration(cfg.IdleTimeout), func(out frameWriter) session {
		return newPushSession(out, h, sessLog)
	}, logger)

	var gw *gateway
	if cfg.Gateway.Addr != "" {
		gw = newGateway(h, cfg.Gateway.Origin, logger.With().Str("component", "gateway").Logger())
	}
	return serve(ctx, cfg, srv, gw, logger)
}

// setup loads config, applies shared flag overrides, and builds the
// root logger.
func setup(cmd *cli.Command) (config, zerolog.Logger, error) {
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return config{}, zerolog.Logger{}, err
	}
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("idle-timeout") {
		cfg.IdleTimeout = duration(cmd.Duration("idle-timeout"))
	}
	if cmd.IsSet("metrics-interval") {
		cfg.MetricsInterval = duration(cmd.Duration("metrics-interval"))
	}

	level, err := zerolog.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return config{}, zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(level)
	return cfg, logger, nil
}

// serve runs the TCP server (and gateway, when present) until SIGINT,
// SIGTERM, or a listener failure.
func serve(ctx context.Context, cfg config, srv *server, gw *gateway, logger zerolog.Logger) error {
	mm := newMetrics(os.Stderr, time.Duration(cfg.MetricsInterval))
	mm.use()
	mm.start()

	if err := srv.listen(); err != nil {
		return err
	}
	if gw != nil {
		if err := gw.start(cfg.Gateway.Addr); err != nil {
			srv.close()
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		srv.serve()
		close(done)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case <-done:
	}

	srv.close()
	if gw != nil {
		gw.stop()
	}
	mm.writeOnce()
	return nil
}
