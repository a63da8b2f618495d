package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/plsuwu/afkttv/internal/chat"
	"github.com/plsuwu/afkttv/internal/config"
	"github.com/plsuwu/afkttv/internal/console"
	"github.com/plsuwu/afkttv/internal/logging"
	"github.com/plsuwu/afkttv/internal/telemetry"
)

func run(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	return runWithLogger(ctx, opts, in, out, logging.NewStderr(opts.verbose))
}

func runWithLogger(ctx context.Context, opts *options, in io.Reader, out io.Writer, logger *slog.Logger) error {
	creds, err := config.LoadOrPrompt(opts.configPath, config.NewPrompter(in, out))
	if err != nil {
		return err
	}
	logger.Info("credentials loaded", "path", opts.configPath, "user", creds.User)
	logger.Debug("presence share", "percent", opts.percent)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	printer := console.New(out)

	g, gctx := errgroup.WithContext(ctx)

	if opts.irc {
		cfg := chat.Config{
			URL:         opts.chatURL,
			Channel:     opts.channel,
			Credentials: creds,
			Strict:      opts.strict,
			OnEvent:     printer.Print,
			Logger:      logger,
			Metrics:     chat.NewMetrics(chat.WithRegistry(reg)),
		}
		g.Go(func() error { return chat.RunChat(gctx, cfg) })
	}

	if opts.eventEdge {
		cfg := chat.Config{
			URL:     opts.eventsURL,
			OnEvent: printer.Print,
			Logger:  logger,
			Metrics: chat.NewMetrics(chat.WithRegistry(reg), chat.WithSubsystem("events")),
		}
		g.Go(func() error { return chat.RunEvents(gctx, cfg) })
	}

	if opts.metricsAddr != "" {
		g.Go(func() error {
			return telemetry.Serve(gctx, opts.metricsAddr, telemetry.NewRouter(reg), logger)
		})
	}

	return g.Wait()
}
