// afkttv-devserver is a local stand-in for the chat endpoint. It accepts
// WebSocket clients, answers the login handshake with the notices the real
// server sends, replies to PING, probes each client with its own PING and can
// replay scripted chat lines into the joined channel.
//
// Point the client at it with:
//
//	afkttv --chat-url ws://127.0.0.1:6680/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/plsuwu/afkttv/internal/logging"
	"github.com/plsuwu/afkttv/internal/telemetry"
	"github.com/plsuwu/afkttv/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr         string
		metricsAddr  string
		pingInterval time.Duration
		chatInterval time.Duration
		script       []string
		rateLimit    bool
		verbose      bool
	)

	flagSet := pflag.NewFlagSet("afkttv-devserver", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", "127.0.0.1:6680", "listen address for WebSocket clients")
	flagSet.StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	flagSet.DurationVar(&pingInterval, "ping-interval", time.Minute, "interval between server PING probes")
	flagSet.DurationVar(&chatInterval, "chat-interval", 5*time.Second, "interval between scripted chat lines")
	flagSet.StringArrayVar(&script, "say", nil, "chat line to replay into the joined channel (repeatable)")
	flagSet.BoolVar(&rateLimit, "rate-limit", true, "disconnect clients that flood the server")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log every line received")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if pingInterval <= 0 {
		return fmt.Errorf("--ping-interval must be positive, got %s", pingInterval)
	}

	logger := logging.NewStderr(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	limits := websocket.DefaultRateLimitConfig()
	if !rateLimit {
		limits = websocket.NoRateLimit()
	}

	server := websocket.NewServer(newTMI(reg, pingInterval, chatInterval, script, logger).serverConfig(addr, limits))
	if err := server.Start(ctx); err != nil {
		return err
	}
	logger.Info("listening", "addr", addr)

	g, gctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		g.Go(func() error {
			return telemetry.Serve(gctx, metricsAddr, telemetry.NewRouter(reg), logger)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Stop(stopCtx)
	})

	return g.Wait()
}
