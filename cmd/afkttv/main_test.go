package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onsi/gomega"

	"github.com/plsuwu/afkttv"
	"github.com/plsuwu/afkttv/internal/config"
	"github.com/plsuwu/afkttv/internal/websocket"
)

func TestFlagDefaults(t *testing.T) {
	t.Parallel()

	cmd := rootCmd()
	flags := cmd.Flags()

	tests := []struct {
		name      string
		shorthand string
		want      string
	}{
		{name: "irc", shorthand: "i", want: "true"},
		{name: "event-edge", shorthand: "e", want: "false"},
		{name: "percent", shorthand: "p", want: "100"},
		{name: "channel", shorthand: "c", want: ""},
		{name: "verbose", shorthand: "v", want: "false"},
		{name: "strict", want: "false"},
		{name: "metrics-addr", want: ""},
		{name: "chat-url", want: afkttv.URLChat},
		{name: "events-url", want: afkttv.URLEvents},
	}

	for _, tt := range tests {
		f := flags.Lookup(tt.name)
		if f == nil {
			t.Errorf("flag --%s missing", tt.name)
			continue
		}
		if f.DefValue != tt.want {
			t.Errorf("--%s default = %q, want %q", tt.name, f.DefValue, tt.want)
		}
		if f.Shorthand != tt.shorthand {
			t.Errorf("--%s shorthand = %q, want %q", tt.name, f.Shorthand, tt.shorthand)
		}
	}

	if f := flags.Lookup("config"); f == nil || f.DefValue != config.DefaultPath() {
		t.Errorf("--config default should be %s", config.DefaultPath())
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "percent too high", args: []string{"--percent", "101"}, wantErr: "--percent"},
		{name: "percent negative", args: []string{"--percent=-1"}, wantErr: "--percent"},
		{name: "nothing enabled", args: []string{"--irc=false"}, wantErr: "nothing to do"},
		{name: "empty config path", args: []string{"--config", ""}, wantErr: "--config"},
		{name: "unexpected argument", args: []string{"extra"}, wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := rootCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute() error = %v, want one mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAcceptsBounds(t *testing.T) {
	t.Parallel()

	for _, percent := range []int{0, 50, 100} {
		opts := defaultOptions()
		opts.percent = percent
		if err := opts.validate(); err != nil {
			t.Errorf("validate() with percent %d error = %v", percent, err)
		}
	}
}

// syncBuffer is a bytes.Buffer safe for the printer and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunPrintsChat(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	server := websocket.NewServer(&websocket.ServerConfig{
		RateLimitConfig: websocket.NoRateLimit(),
		Logger:          slog.New(slog.DiscardHandler),
		OnLine: func(peer *websocket.Peer, line string) {
			if strings.HasPrefix(line, "JOIN ") {
				peer.Send(context.Background(), "@display-name=carol :carol!carol@carol.tmi.twitch.tv PRIVMSG #alice :hey alice\r\n")
			}
		},
	})
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()
	defer server.Stop(context.Background())

	path := filepath.Join(t.TempDir(), "config.toml")
	g.Expect(config.Save(path, afkttv.Credentials{Auth: "abc", User: "alice"})).To(gomega.Succeed())

	opts := defaultOptions()
	opts.configPath = path
	opts.chatURL = "ws" + strings.TrimPrefix(ts.URL, "http") + "/"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- runWithLogger(ctx, opts, strings.NewReader(""), out, slog.New(slog.DiscardHandler))
	}()

	g.Eventually(out.String, 2*time.Second).Should(gomega.ContainSubstring("#alice carol: hey alice"))

	cancel()
	g.Eventually(done, 2*time.Second).Should(gomega.Receive(gomega.BeNil()))
}
