package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/plsuwu/afkttv"
	"github.com/plsuwu/afkttv/internal/protocol"
)

func collect(events *[]protocol.Event) EventHandler {
	return func(e protocol.Event) { *events = append(*events, e) }
}

func TestDispatcherRepliesBeforeNextFrame(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	w := &recordingWriter{}
	r := &scriptedReader{
		writer: w,
		frames: []string{
			":tmi.twitch.tv CAP * ACK :twitch.tv/tags twitch.tv/commands\r\n:tmi.twitch.tv 001 alice :Welcome, GLHF!\r\n",
			"PING :tmi.twitch.tv\r\n",
			"@badge-info=;display-name=bob;color= :bob!bob@bob.tmi.twitch.tv PRIVMSG #alice :hi\r\n",
		},
	}

	var events []protocol.Event
	d := NewDispatcher(r, w, DispatcherConfig{OnEvent: collect(&events), Logger: discard})

	err := d.Run(context.Background())
	g.Expect(errors.Is(err, afkttv.ErrSessionLost)).To(gomega.BeTrue(), "Run() error = %v", err)

	g.Expect(w.Lines()).To(gomega.Equal([]string{"PONG :tmi.twitch.tv"}))
	// Nothing sent before the PING frame; exactly one reply before the next read
	g.Expect(r.sentAt).To(gomega.Equal([]int{0, 0, 1, 1}))

	g.Expect(events).To(gomega.Equal([]protocol.Event{
		protocol.Unclassified{Raw: ":tmi.twitch.tv CAP * ACK :twitch.tv/tags twitch.tv/commands"},
		protocol.Unclassified{Raw: ":tmi.twitch.tv 001 alice :Welcome, GLHF!"},
		protocol.ChatMessage{Chatter: "bob", Channel: "alice", Content: "hi"},
	}))
}

func TestDispatcherOneEventPerLine(t *testing.T) {
	t.Parallel()

	frame := "@display-name=alice;emotes= :tmi.twitch.tv GLOBALUSERSTATE\r\n" +
		"@display-name=alice;mod=0 :tmi.twitch.tv USERSTATE #bob\r\n" +
		"@emote-only=0;room-id=1 :tmi.twitch.tv ROOMSTATE #bob\r\n" +
		"PONG :tmi.twitch.tv\r\n"

	var events []protocol.Event
	w := &recordingWriter{}
	d := NewDispatcher(&scriptedReader{frames: []string{frame}}, w, DispatcherConfig{OnEvent: collect(&events), Logger: discard})
	d.Run(context.Background())

	want := []protocol.Event{
		protocol.StateChanged{State: protocol.GlobalUserState, Chatter: "alice"},
		protocol.StateChanged{State: protocol.UserState, Chatter: "alice", Channel: "bob"},
		protocol.StateChanged{State: protocol.RoomState},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %#v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %#v, want %#v", i, events[i], want[i])
		}
	}

	if len(w.Lines()) != 0 {
		t.Errorf("a keepalive ack must not be answered, sent %q", w.Lines())
	}
}

func TestDispatcherParseFailure(t *testing.T) {
	t.Parallel()

	malformed := ":bob!bob@bob.tmi.twitch.tv PRIVMSG #alice :no tags"

	t.Run("lenient", func(t *testing.T) {
		t.Parallel()

		var events []protocol.Event
		d := NewDispatcher(&scriptedReader{frames: []string{malformed}}, &recordingWriter{}, DispatcherConfig{
			OnEvent: collect(&events),
			Logger:  discard,
		})

		err := d.Run(context.Background())
		if !errors.Is(err, afkttv.ErrSessionLost) {
			t.Errorf("Run() error = %v, want ErrSessionLost", err)
		}
		if len(events) != 1 || events[0] != (protocol.Unclassified{Raw: malformed}) {
			t.Errorf("events = %#v, want the line as Unclassified", events)
		}
	})

	t.Run("strict", func(t *testing.T) {
		t.Parallel()

		var events []protocol.Event
		d := NewDispatcher(&scriptedReader{frames: []string{malformed, "PING :tmi.twitch.tv"}}, &recordingWriter{}, DispatcherConfig{
			Strict:  true,
			OnEvent: collect(&events),
			Logger:  discard,
		})

		err := d.Run(context.Background())
		if !errors.Is(err, afkttv.ErrParse) {
			t.Errorf("Run() error = %v, want ErrParse", err)
		}
		if len(events) != 0 {
			t.Errorf("events = %#v, want none", events)
		}
	})
}

func TestDispatcherRawMode(t *testing.T) {
	t.Parallel()

	frame := `{"type":"PONG"}`
	var events []protocol.Event
	w := &recordingWriter{}
	d := NewDispatcher(&scriptedReader{frames: []string{frame}}, w, DispatcherConfig{
		Raw:     true,
		OnEvent: collect(&events),
		Logger:  discard,
	})
	d.Run(context.Background())

	if len(events) != 1 || events[0] != (protocol.Unclassified{Raw: frame}) {
		t.Errorf("events = %#v, want the frame as Unclassified", events)
	}
	if len(w.Lines()) != 0 {
		t.Errorf("raw mode sent %q", w.Lines())
	}
}

func TestDispatcherReplyFailure(t *testing.T) {
	t.Parallel()

	sendErr := errors.New("write: broken pipe")
	w := &recordingWriter{failAt: 1, err: sendErr}
	d := NewDispatcher(&scriptedReader{frames: []string{"PING :tmi.twitch.tv"}}, w, DispatcherConfig{Logger: discard})

	if err := d.Run(context.Background()); !errors.Is(err, sendErr) {
		t.Errorf("Run() error = %v, want the send error", err)
	}
}

func TestDispatcherReceiveFailure(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&scriptedReader{finalErr: afkttv.ErrConnection}, &recordingWriter{}, DispatcherConfig{Logger: discard})

	err := d.Run(context.Background())
	if !errors.Is(err, afkttv.ErrSessionLost) || !errors.Is(err, afkttv.ErrConnection) {
		t.Errorf("Run() error = %v, want ErrSessionLost wrapping ErrConnection", err)
	}
}

func TestDispatcherCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(&scriptedReader{}, &recordingWriter{}, DispatcherConfig{Logger: discard})
	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestDispatcherMetrics(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegistry(reg), WithNamespace("test"))

	frames := []string{
		"PING :tmi.twitch.tv\r\n@display-name=bob :bob!bob@bob.tmi.twitch.tv PRIVMSG #alice :hi\r\n",
		":bob!bob@bob.tmi.twitch.tv PRIVMSG #alice :untagged\r\n",
	}
	d := NewDispatcher(&scriptedReader{frames: frames}, &recordingWriter{}, DispatcherConfig{Logger: discard, Metrics: metrics})
	d.Run(context.Background())

	g.Expect(testutil.ToFloat64(metrics.framesReceived)).To(gomega.Equal(2.0))
	g.Expect(testutil.ToFloat64(metrics.keepaliveReplies)).To(gomega.Equal(1.0))
	g.Expect(testutil.ToFloat64(metrics.parseFailures)).To(gomega.Equal(1.0))
	g.Expect(testutil.ToFloat64(metrics.events.WithLabelValues("keepalive_request"))).To(gomega.Equal(1.0))
	g.Expect(testutil.ToFloat64(metrics.events.WithLabelValues("chat_message"))).To(gomega.Equal(1.0))
	g.Expect(testutil.ToFloat64(metrics.events.WithLabelValues("unclassified"))).To(gomega.Equal(1.0))

	count, err := testutil.GatherAndCount(reg, "test_chat_frames_received_total")
	g.Expect(err).ToNot(gomega.HaveOccurred())
	g.Expect(count).To(gomega.Equal(1))
}
