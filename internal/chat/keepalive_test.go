package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/plsuwu/afkttv"
)

func TestDefaultKeepaliveConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultKeepaliveConfig()

	if cfg.Base != 240*time.Second {
		t.Errorf("Base = %v, want 240s", cfg.Base)
	}
	if cfg.Spread != 10*time.Second {
		t.Errorf("Spread = %v, want 10s", cfg.Spread)
	}
	if cfg.Probe != "PING" {
		t.Errorf("Probe = %q, want PING", cfg.Probe)
	}
}

func TestNextDelayRange(t *testing.T) {
	t.Parallel()

	k := NewKeepalive(&recordingWriter{}, KeepaliveConfig{Logger: discard})

	lo, hi := 240*time.Second, 250*time.Second
	seen := make(map[time.Duration]bool)
	for i := 0; i < 1000; i++ {
		d := k.NextDelay()
		if d < lo || d >= hi {
			t.Fatalf("NextDelay() = %v, want in [%v, %v)", d, lo, hi)
		}
		if d%time.Millisecond != 0 {
			t.Fatalf("NextDelay() = %v, want whole milliseconds", d)
		}
		seen[d] = true
	}

	// 1000 draws from 10000 values should almost never collapse to a handful
	if len(seen) < 100 {
		t.Errorf("only %d distinct delays in 1000 draws", len(seen))
	}
}

func TestNextDelayNoSpread(t *testing.T) {
	t.Parallel()

	k := NewKeepalive(&recordingWriter{}, KeepaliveConfig{Base: time.Second, Logger: discard})
	if d := k.NextDelay(); d != time.Second {
		t.Errorf("NextDelay() = %v, want 1s", d)
	}
}

func TestKeepaliveRun(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegistry(reg))

	var slept []time.Duration
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &recordingWriter{}
	k := NewKeepalive(w, KeepaliveConfig{
		Base:   time.Minute,
		Spread: time.Second,
		Jitter: func(spread time.Duration) time.Duration { return spread / 2 },
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			if len(slept) > 3 {
				cancel()
				return ctx.Err()
			}
			return nil
		},
		Logger:  discard,
		Metrics: metrics,
	})

	err := k.Run(ctx)
	g.Expect(err).To(gomega.MatchError(context.Canceled))
	g.Expect(w.Lines()).To(gomega.Equal([]string{"PING", "PING", "PING"}))
	g.Expect(slept).To(gomega.HaveEach(time.Minute + 500*time.Millisecond))
	g.Expect(testutil.ToFloat64(metrics.keepaliveProbes)).To(gomega.Equal(3.0))
}

func TestKeepaliveCustomProbe(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &recordingWriter{}
	k := NewKeepalive(w, KeepaliveConfig{
		Probe: afkttv.EventsProbe,
		Sleep: func(ctx context.Context, d time.Duration) error {
			if len(w.Lines()) == 1 {
				cancel()
				return ctx.Err()
			}
			return nil
		},
		Logger: discard,
	})

	k.Run(ctx)

	if got := w.Lines(); len(got) != 1 || got[0] != `{"type":"PING"}` {
		t.Errorf("sent %q, want one events probe", got)
	}
}

func TestKeepaliveSendFailure(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{failAt: 2, err: afkttv.ErrConnectionClosed}
	k := NewKeepalive(w, KeepaliveConfig{
		Sleep:  func(ctx context.Context, d time.Duration) error { return nil },
		Logger: discard,
	})

	err := k.Run(context.Background())
	if !errors.Is(err, afkttv.ErrConnectionClosed) {
		t.Errorf("Run() error = %v, want ErrConnectionClosed", err)
	}
	if n := len(w.Lines()); n != 1 {
		t.Errorf("sent %d probes before failing, want 1", n)
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleepContext() did not return promptly on cancellation")
	}
}
