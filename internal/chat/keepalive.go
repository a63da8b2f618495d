package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/plsuwu/afkttv"
)

// KeepaliveConfig tunes the keepalive scheduler.
type KeepaliveConfig struct {
	// Base is the fixed part of the delay between probes.
	Base time.Duration
	// Spread bounds the jitter added to Base: jitter is in [0, Spread).
	Spread time.Duration
	// Probe is the line sent after each delay.
	Probe string

	// Jitter draws a value in [0, spread). Nil draws uniformly in whole
	// milliseconds.
	Jitter func(spread time.Duration) time.Duration
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger  *slog.Logger
	Metrics *Metrics
}

// DefaultKeepaliveConfig returns the chat endpoint cadence: a PING every 240
// seconds plus up to 10 seconds of jitter.
func DefaultKeepaliveConfig() KeepaliveConfig {
	return KeepaliveConfig{
		Base:   240 * time.Second,
		Spread: 10 * time.Second,
		Probe:  afkttv.KeepaliveProbe,
	}
}

// Keepalive periodically writes a liveness probe. It only ever writes.
type Keepalive struct {
	w       afkttv.LineWriter
	base    time.Duration
	spread  time.Duration
	probe   string
	jitter  func(time.Duration) time.Duration
	sleep   func(context.Context, time.Duration) error
	logger  *slog.Logger
	metrics *Metrics
}

// NewKeepalive creates a scheduler writing to w. A zero Base selects the
// default cadence, Spread included; other zero fields fall back individually.
func NewKeepalive(w afkttv.LineWriter, cfg KeepaliveConfig) *Keepalive {
	def := DefaultKeepaliveConfig()
	if cfg.Base <= 0 {
		cfg.Base = def.Base
		cfg.Spread = def.Spread
	}
	if cfg.Spread < 0 {
		cfg.Spread = 0
	}
	if cfg.Probe == "" {
		cfg.Probe = def.Probe
	}
	if cfg.Jitter == nil {
		cfg.Jitter = uniformJitter
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Keepalive{
		w:       w,
		base:    cfg.Base,
		spread:  cfg.Spread,
		probe:   cfg.Probe,
		jitter:  cfg.Jitter,
		sleep:   cfg.Sleep,
		logger:  cfg.Logger.With("component", "keepalive"),
		metrics: cfg.Metrics,
	}
}

// NextDelay returns Base plus a fresh jitter value.
func (k *Keepalive) NextDelay() time.Duration {
	return k.base + k.jitter(k.spread)
}

// Run sleeps and probes until ctx is done or a send fails.
func (k *Keepalive) Run(ctx context.Context) error {
	for {
		delay := k.NextDelay()
		k.logger.Debug("next probe scheduled", "delay", delay, "jitter", delay-k.base)

		if err := k.sleep(ctx, delay); err != nil {
			return err
		}

		if err := k.w.Send(ctx, k.probe); err != nil {
			return fmt.Errorf("keepalive probe: %w", err)
		}
		k.metrics.probeSent()
		k.logger.Info("keepalive probe sent", "line", k.probe)
	}
}

func uniformJitter(spread time.Duration) time.Duration {
	ms := int64(spread / time.Millisecond)
	if ms <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(ms)) * time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
