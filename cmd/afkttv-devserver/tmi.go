package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/plsuwu/afkttv"
	"github.com/plsuwu/afkttv/internal/protocol"
	"github.com/plsuwu/afkttv/internal/websocket"
)

// tmi answers enough of the chat protocol for a client to log in, join and
// stay connected.
type tmi struct {
	pingInterval time.Duration
	chatInterval time.Duration
	script       []string
	logger       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*tmiSession

	peers prometheus.Gauge
	lines *prometheus.CounterVec
}

type tmiSession struct {
	nick    string
	channel string
}

func newTMI(reg prometheus.Registerer, pingInterval, chatInterval time.Duration, script []string, logger *slog.Logger) *tmi {
	factory := promauto.With(reg)
	return &tmi{
		pingInterval: pingInterval,
		chatInterval: chatInterval,
		script:       script,
		logger:       logger.With("component", "tmi"),
		sessions:     make(map[string]*tmiSession),
		peers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "afkttv",
			Subsystem: "devserver",
			Name:      "peers",
			Help:      "Connected peers.",
		}),
		lines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "afkttv",
			Subsystem: "devserver",
			Name:      "lines_total",
			Help:      "Lines received from peers by command.",
		}, []string{"command"}),
	}
}

func (t *tmi) serverConfig(addr string, rateLimit *websocket.RateLimitConfig) *websocket.ServerConfig {
	return &websocket.ServerConfig{
		Addr:            addr,
		RateLimitConfig: rateLimit,
		OnConnect:       t.onConnect,
		OnLine:          t.onLine,
		OnDisconnect:    t.onDisconnect,
		Logger:          t.logger,
	}
}

func (t *tmi) onConnect(peer *websocket.Peer) {
	t.mu.Lock()
	t.sessions[peer.ID()] = &tmiSession{}
	t.mu.Unlock()
	t.peers.Inc()

	t.logger.Info("peer connected", "peer_id", peer.ID(), "remote_addr", peer.RemoteAddr())
	go t.pump(peer)
}

func (t *tmi) onDisconnect(peer *websocket.Peer, voluntary bool) {
	t.mu.Lock()
	delete(t.sessions, peer.ID())
	t.mu.Unlock()
	t.peers.Dec()

	t.logger.Info("peer disconnected", "peer_id", peer.ID(), "voluntary", voluntary)
}

// onLine answers one client line. Replies are queued on the peer.
func (t *tmi) onLine(peer *websocket.Peer, line string) {
	command, rest, _ := strings.Cut(line, " ")
	t.lines.WithLabelValues(command).Inc()
	t.logger.Debug("line", "peer_id", peer.ID(), "line", protocol.Redact(line))

	ctx := peer.Context()
	switch command {
	case "CAP":
		peer.Send(ctx, fmt.Sprintf(":%s CAP * ACK :%s\r\n", afkttv.ServerHost, strings.TrimPrefix(rest, "REQ :")))
	case "NICK":
		t.update(peer, func(s *tmiSession) { s.nick = strings.TrimSpace(rest) })
	case "JOIN":
		channel := protocol.NormalizeChannel(rest)
		var nick string
		t.update(peer, func(s *tmiSession) {
			s.channel = channel
			nick = s.nick
		})
		peer.Send(ctx, welcome(nick, channel))
	case "PING":
		peer.Send(ctx, afkttv.KeepaliveReply+"\r\n")
	}
}

func (t *tmi) update(peer *websocket.Peer, fn func(*tmiSession)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[peer.ID()]; ok {
		fn(s)
	}
}

func (t *tmi) session(peer *websocket.Peer) tmiSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[peer.ID()]; ok {
		return *s
	}
	return tmiSession{}
}

// pump sends server probes and scripted chat to one peer until it leaves.
func (t *tmi) pump(peer *websocket.Peer) {
	ping := time.NewTicker(t.pingInterval)
	defer ping.Stop()

	var chat <-chan time.Time
	if len(t.script) > 0 && t.chatInterval > 0 {
		ticker := time.NewTicker(t.chatInterval)
		defer ticker.Stop()
		chat = ticker.C
	}

	next := 0
	for {
		select {
		case <-peer.Context().Done():
			return
		case <-ping.C:
			peer.Send(peer.Context(), "PING :"+afkttv.ServerHost+"\r\n")
		case <-chat:
			s := t.session(peer)
			if s.channel == "" {
				continue
			}
			peer.Send(peer.Context(), privmsg("devbot", s.channel, t.script[next%len(t.script)]))
			next++
		}
	}
}

func welcome(nick, channel string) string {
	host := afkttv.ServerHost
	lines := []string{
		fmt.Sprintf(":%s 001 %s :Welcome, GLHF!", host, nick),
		fmt.Sprintf("@badge-info=;badges=;color=;display-name=%s;emote-sets=0;user-id=1;user-type= :%s GLOBALUSERSTATE", nick, host),
		fmt.Sprintf(":%s!%s@%s.%s JOIN #%s", nick, nick, nick, host, channel),
		fmt.Sprintf("@badge-info=;badges=;color=;display-name=%s;emote-sets=0;mod=0;subscriber=0;user-type= :%s USERSTATE #%s", nick, host, channel),
		fmt.Sprintf("@emote-only=0;followers-only=-1;r9k=0;room-id=1;slow=0;subs-only=0 :%s ROOMSTATE #%s", host, channel),
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

func privmsg(chatter, channel, content string) string {
	return fmt.Sprintf("@badge-info=;badges=;color=;display-name=%s;emotes=;user-id=2 :%s!%s@%s.%s PRIVMSG #%s :%s\r\n",
		chatter, chatter, chatter, chatter, afkttv.ServerHost, channel, content)
}
