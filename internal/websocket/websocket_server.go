package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/plsuwu/afkttv"
	"github.com/plsuwu/afkttv/internal/protocol"
)

// CheckOriginFn validates the origin of an upgrade request.
type CheckOriginFn = func(r *http.Request) bool

// OnConnectFn is called after the upgrade completes and before the peer's read
// loop starts. It runs synchronously; keep it short.
type OnConnectFn = func(peer *Peer)

// OnLineFn is called for every protocol line a peer sends, in order.
type OnLineFn = func(peer *Peer, line string)

// OnDisconnectFn is called once when a peer's read loop ends. voluntary is true
// when the peer closed the connection itself.
type OnDisconnectFn = func(peer *Peer, voluntary bool)

// ServerConfig configures a Server.
type ServerConfig struct {
	Addr            string
	Path            string
	RateLimitConfig *RateLimitConfig
	CheckOrigin     CheckOriginFn
	OnConnect       OnConnectFn
	OnLine          OnLineFn
	OnDisconnect    OnDisconnectFn
	Logger          *slog.Logger
}

// RateLimitConfig limits the frames a single peer may send
type RateLimitConfig struct {
	// MessagesPerSecond defines how many frames a peer can send per second
	MessagesPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit configuration
// Allows 20 frames per second with burst of 100
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerSecond: 20,
		Burst:             100,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

// Server is a minimal chat server speaking the line protocol over WebSocket.
// It backs cmd/afkttv-devserver and the end-to-end tests.
type Server struct {
	addr   string
	path   string
	server *http.Server
	peers  sync.Map // map[string]*Peer

	rateLimitConfig *RateLimitConfig

	mu           sync.RWMutex
	running      bool
	upgrader     websocket.Upgrader
	onConnect    OnConnectFn
	onLine       OnLineFn
	onDisconnect OnDisconnectFn
	logger       *slog.Logger
}

// NewServer creates a server. A nil RateLimitConfig uses DefaultRateLimitConfig;
// an empty Path serves on "/".
func NewServer(cfg *ServerConfig) *Server {
	if cfg.RateLimitConfig == nil {
		cfg.RateLimitConfig = DefaultRateLimitConfig()
	}
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:            cfg.Addr,
		path:            path,
		rateLimitConfig: cfg.RateLimitConfig,
		onConnect:       cfg.OnConnect,
		onLine:          cfg.OnLine,
		onDisconnect:    cfg.OnDisconnect,
		logger:          logger.With("component", "devserver"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

// Handler returns the HTTP handler serving the upgrade path, for use with
// httptest or an existing mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWebSocket)
	return mux
}

// Start starts listening. It returns once the listener is bound; serving
// continues until Stop is called or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}

	s.server = &http.Server{
		Handler: s.Handler(),
	}
	s.logger.Info("listening", "addr", listener.Addr().String(), "path", s.path)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("serve failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(stopCtx)
	}()

	return nil
}

// Stop closes every peer and, if Start was called, shuts the listener down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.running = false
	s.mu.Unlock()

	s.peers.Range(func(key, value interface{}) bool {
		if peer, ok := value.(*Peer); ok {
			peer.Close(ctx)
		}
		return true
	})

	if running && s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Broadcast sends frame to every connected peer
func (s *Server) Broadcast(ctx context.Context, frame string) error {
	var errs []error
	s.peers.Range(func(key, value interface{}) bool {
		if peer, ok := value.(*Peer); ok {
			if err := peer.Send(ctx, frame); err != nil {
				errs = append(errs, fmt.Errorf("peer %s: %w", peer.ID(), err))
			}
		}
		return true
	})
	return errors.Join(errs...)
}

// Peer returns a connected peer by ID
func (s *Server) Peer(id string) (*Peer, bool) {
	if peer, ok := s.peers.Load(id); ok {
		return peer.(*Peer), true
	}
	return nil, false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	peer := newPeer(conn, r.RemoteAddr, s.rateLimitConfig, s.logger)
	s.peers.Store(peer.ID(), peer)

	go s.handlePeer(peer)
}

func (s *Server) handlePeer(peer *Peer) {
	defer func() {
		voluntary := peer.Context().Err() == nil
		peer.Close(context.Background())
		s.peers.Delete(peer.ID())
		if s.onDisconnect != nil {
			s.onDisconnect(peer, voluntary)
		}
	}()

	peer.conn.SetReadDeadline(time.Now().Add(peerReadTimeout))
	peer.conn.SetPongHandler(func(string) error {
		peer.conn.SetReadDeadline(time.Now().Add(peerReadTimeout))
		return nil
	})

	if s.onConnect != nil {
		s.onConnect(peer)
	}

	for {
		_, data, err := peer.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("unexpected close", "peer_id", peer.ID(), "error", err)
			}
			return
		}
		peer.conn.SetReadDeadline(time.Now().Add(peerReadTimeout))

		if !peer.CheckRateLimit() {
			s.logger.Warn("rate limit exceeded", "peer_id", peer.ID(), "remote_addr", peer.RemoteAddr())
			peer.CloseWithCode(context.Background(), websocket.ClosePolicyViolation, "Rate limit exceeded")
			return
		}

		for _, line := range protocol.SplitFrame(string(data)) {
			peer.record(line)
			if s.onLine != nil {
				s.onLine(peer, line)
			}
		}
	}
}

const (
	peerSendBuffer  = 256
	peerReadTimeout = 10 * time.Minute
	peerPingPeriod  = 54 * time.Second
	peerWriteWait   = 10 * time.Second
)

// Peer is one client connected to a Server.
type Peer struct {
	id          string
	conn        *websocket.Conn
	remoteAddr  string
	ctx         context.Context
	cancel      context.CancelFunc
	sendCh      chan string
	mu          sync.RWMutex
	closed      bool
	rateLimiter *rate.Limiter
	logger      *slog.Logger

	linesMu sync.Mutex
	lines   []string
}

func newPeer(conn *websocket.Conn, remoteAddr string, rateLimitConfig *RateLimitConfig, logger *slog.Logger) *Peer {
	ctx, cancel := context.WithCancel(context.Background())

	var limiter *rate.Limiter
	if rateLimitConfig != nil && rateLimitConfig.Enabled {
		limiter = rate.NewLimiter(rateLimitConfig.MessagesPerSecond, rateLimitConfig.Burst)
	}

	id := uuid.New().String()
	peer := &Peer{
		id:          id,
		conn:        conn,
		remoteAddr:  remoteAddr,
		ctx:         ctx,
		cancel:      cancel,
		sendCh:      make(chan string, peerSendBuffer),
		rateLimiter: limiter,
		logger:      logger.With("peer_id", id),
	}

	go peer.writePump()

	return peer
}

// ID returns the peer's unique identifier
func (p *Peer) ID() string {
	return p.id
}

// RemoteAddr returns the peer's remote network address
func (p *Peer) RemoteAddr() string {
	return p.remoteAddr
}

// Context returns the peer's lifecycle context
func (p *Peer) Context() context.Context {
	return p.ctx
}

// Lines returns a copy of every line the peer has sent so far, in order
func (p *Peer) Lines() []string {
	p.linesMu.Lock()
	defer p.linesMu.Unlock()
	return append([]string(nil), p.lines...)
}

func (p *Peer) record(line string) {
	p.linesMu.Lock()
	p.lines = append(p.lines, line)
	p.linesMu.Unlock()
}

// Send queues frame for delivery to the peer
func (p *Peer) Send(ctx context.Context, frame string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return afkttv.ErrConnectionClosed
	}

	select {
	case p.sendCh <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return afkttv.ErrConnectionClosed
	}
}

// Close closes the peer connection
func (p *Peer) Close(ctx context.Context) error {
	return p.CloseWithCode(ctx, websocket.CloseNormalClosure, "")
}

// CloseWithCode closes the connection with a close code and optional reason
func (p *Peer) CloseWithCode(ctx context.Context, code int, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	p.cancel()

	message := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(time.Second)
	p.conn.WriteControl(websocket.CloseMessage, message, deadline)

	close(p.sendCh)
	return p.conn.Close()
}

// IsAlive returns true if the connection is still active
func (p *Peer) IsAlive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

// CheckRateLimit reports whether the peer may send another frame
func (p *Peer) CheckRateLimit() bool {
	if p.rateLimiter == nil {
		return true
	}
	return p.rateLimiter.Allow()
}

// writePump pumps frames from the send channel to the websocket connection
func (p *Peer) writePump() {
	ticker := time.NewTicker(peerPingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.sendCh:
			if !ok {
				return
			}
			p.conn.SetWriteDeadline(time.Now().Add(peerWriteWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				p.logger.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(peerWriteWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}
