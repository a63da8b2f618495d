package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/plsuwu/afkttv"
	"github.com/plsuwu/afkttv/internal/protocol"
)

// EventHandler receives every event the dispatcher classifies, in arrival
// order. It runs on the dispatcher goroutine and should not block.
type EventHandler func(protocol.Event)

// DispatcherConfig tunes the event dispatcher.
type DispatcherConfig struct {
	// Strict makes a malformed chat message or state notice fatal. Otherwise
	// the line is logged and handed on as Unclassified.
	Strict bool
	// Raw skips line classification; every frame is handed on whole as
	// Unclassified. The pubsub endpoint speaks JSON, not IRC lines.
	Raw bool
	// Reply is sent for every KeepaliveRequest (default: afkttv.KeepaliveReply).
	Reply string

	OnEvent EventHandler
	Logger  *slog.Logger
	Metrics *Metrics
}

// Dispatcher is the single consumer of a connection's Reader. It answers
// server keepalive probes through the Writer it shares with the scheduler.
type Dispatcher struct {
	r       afkttv.FrameReader
	w       afkttv.LineWriter
	strict  bool
	raw     bool
	reply   string
	onEvent EventHandler
	logger  *slog.Logger
	metrics *Metrics
}

// NewDispatcher creates a dispatcher reading from r and replying through w.
func NewDispatcher(r afkttv.FrameReader, w afkttv.LineWriter, cfg DispatcherConfig) *Dispatcher {
	if cfg.Reply == "" {
		cfg.Reply = afkttv.KeepaliveReply
	}
	if cfg.OnEvent == nil {
		cfg.OnEvent = func(protocol.Event) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		r:       r,
		w:       w,
		strict:  cfg.Strict,
		raw:     cfg.Raw,
		reply:   cfg.Reply,
		onEvent: cfg.OnEvent,
		logger:  cfg.Logger.With("component", "dispatcher"),
		metrics: cfg.Metrics,
	}
}

// Run reads frames until the connection ends, ctx is done, or a line cannot
// be handled. Loss of the connection returns an error wrapping
// afkttv.ErrSessionLost; cancellation returns ctx.Err().
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		frame, err := d.r.Receive(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %w", afkttv.ErrSessionLost, err)
		}
		d.metrics.frameReceived()

		if err := d.handleFrame(ctx, frame); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) handleFrame(ctx context.Context, frame string) error {
	if d.raw {
		d.logger.Info("frame", "raw", frame)
		d.deliver(protocol.Unclassified{Raw: frame})
		return nil
	}

	for _, line := range protocol.SplitFrame(frame) {
		if err := d.handleLine(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) handleLine(ctx context.Context, line string) error {
	event, err := protocol.Parse(line)
	if err != nil {
		d.metrics.parseFailure()
		if d.strict {
			return err
		}
		d.logger.Warn("unparseable line", "error", err)
		event = protocol.Unclassified{Raw: line}
	}

	switch e := event.(type) {
	case protocol.KeepaliveRequest:
		if err := d.w.Send(ctx, d.reply); err != nil {
			if errors.Is(err, afkttv.ErrConnectionClosed) && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("keepalive reply: %w", err)
		}
		d.metrics.replySent()
		d.logger.Info("keepalive request answered", "server", e.Server)
		d.metrics.event(e.Kind())
		return nil
	case protocol.KeepaliveAck:
		d.logger.Debug("keepalive acknowledged", "server", e.Server)
		d.metrics.event(e.Kind())
		return nil
	case protocol.ChatMessage:
		d.logger.Debug("chat message", "chatter", e.Chatter, "channel", e.Channel)
	case protocol.StateChanged:
		d.logger.Debug("state changed", "state", e.State, "chatter", e.Chatter, "channel", e.Channel)
	case protocol.Unclassified:
		d.logger.Debug("unclassified", "raw", e.Raw)
	}

	d.deliver(event)
	return nil
}

func (d *Dispatcher) deliver(event protocol.Event) {
	d.metrics.event(event.Kind())
	d.onEvent(event)
}
