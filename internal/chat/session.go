package chat

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plsuwu/afkttv"
	"github.com/plsuwu/afkttv/internal/websocket"
)

// Config describes one session.
type Config struct {
	// URL is the endpoint to dial.
	URL string
	// Channel is joined after login. Empty joins the user's own channel.
	Channel     string
	Credentials afkttv.Credentials

	// Dial tunes the transport. Nil uses websocket.DefaultDialConfig().
	Dial *websocket.DialConfig
	// Keepalive tunes the probe scheduler. Zero fields use the chat defaults.
	Keepalive KeepaliveConfig
	// Strict makes malformed lines fatal.
	Strict bool

	OnEvent EventHandler
	Logger  *slog.Logger
	Metrics *Metrics
}

// RunChat dials the chat endpoint, logs in, then keeps the connection alive
// and dispatches its events until ctx is cancelled or the session fails.
// Cancellation of ctx is a clean shutdown and returns nil.
func RunChat(ctx context.Context, cfg Config) error {
	if cfg.URL == "" {
		cfg.URL = afkttv.URLChat
	}
	if cfg.Channel == "" {
		cfg.Channel = cfg.Credentials.User
	}
	logger := sessionLogger(cfg, "chat")

	conn, err := dial(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := Login(ctx, conn.Writer(), cfg.Credentials, cfg.Channel); err != nil {
		closeConn(conn, logger)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	logger.Info("logged in", "user", cfg.Credentials.User, "channel", cfg.Channel)

	return serve(ctx, conn, cfg, DispatcherConfig{Strict: cfg.Strict}, logger)
}

// RunEvents dials the pubsub endpoint and keeps it alive, logging every frame
// it receives. There is no login on this endpoint.
func RunEvents(ctx context.Context, cfg Config) error {
	if cfg.URL == "" {
		cfg.URL = afkttv.URLEvents
	}
	if cfg.Keepalive.Probe == "" {
		cfg.Keepalive.Probe = afkttv.EventsProbe
	}
	logger := sessionLogger(cfg, "events")

	conn, err := dial(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return serve(ctx, conn, cfg, DispatcherConfig{Raw: true}, logger)
}

func sessionLogger(cfg Config, name string) *slog.Logger {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("session", name)
}

func dial(ctx context.Context, cfg Config, logger *slog.Logger) (*websocket.Conn, error) {
	dialCfg := websocket.DefaultDialConfig()
	if cfg.Dial != nil {
		copied := *cfg.Dial
		dialCfg = &copied
	}
	if dialCfg.Logger == nil {
		dialCfg.Logger = logger
	}
	return websocket.Dial(ctx, cfg.URL, dialCfg)
}

// serve runs the keepalive scheduler and the dispatcher against conn. The
// first one to fail stops the other and closes the connection.
func serve(ctx context.Context, conn *websocket.Conn, cfg Config, dcfg DispatcherConfig, logger *slog.Logger) error {
	kcfg := cfg.Keepalive
	kcfg.Logger = logger
	kcfg.Metrics = cfg.Metrics
	keepalive := NewKeepalive(conn.Writer(), kcfg)

	dcfg.OnEvent = cfg.OnEvent
	dcfg.Logger = logger
	dcfg.Metrics = cfg.Metrics
	dispatcher := NewDispatcher(conn.Reader(), conn.Writer(), dcfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return keepalive.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		// Receive does not watch ctx; closing the connection unblocks it.
		<-gctx.Done()
		closeConn(conn, logger)
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		logger.Info("session stopped")
		return nil
	}
	logger.Error("session failed", "error", err)
	return err
}

func closeConn(conn *websocket.Conn, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := conn.Close(ctx); err != nil {
		logger.Debug("close", "error", err)
	}
}
