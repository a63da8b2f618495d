package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/plsuwu/afkttv"
	"github.com/plsuwu/afkttv/internal/protocol"
)

// DialConfig tunes the transport.
type DialConfig struct {
	// HandshakeTimeout bounds the TCP/TLS/upgrade handshake.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds a single Send.
	WriteTimeout time.Duration
	// ReadLimit is the largest frame accepted, in bytes. Zero means no limit.
	ReadLimit int64
	// Logger receives transport logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultDialConfig returns the default transport configuration
func DefaultDialConfig() *DialConfig {
	return &DialConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadLimit:        1 << 20,
	}
}

// Conn is one chat connection. Its Writer and Reader halves may be used from
// different goroutines at the same time.
type Conn struct {
	id     string
	url    string
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	writeTimeout time.Duration

	// writeMu serializes data frames; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	mu     sync.RWMutex
	closed bool

	writer *Writer
	reader *Reader
}

// Writer is the send-only half of a Conn.
type Writer struct {
	c *Conn
}

// Reader is the receive-only half of a Conn. It has a single consumer.
type Reader struct {
	c *Conn
}

// Dial opens a connection to url. The returned error wraps afkttv.ErrConnection
// when the network or upgrade handshake does not complete.
func Dial(ctx context.Context, url string, cfg *DialConfig) (*Conn, error) {
	if cfg == nil {
		cfg = DefaultDialConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialer := &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", afkttv.ErrConnection, url, err)
	}
	if cfg.ReadLimit > 0 {
		ws.SetReadLimit(cfg.ReadLimit)
	}

	return newConn(ws, url, cfg.WriteTimeout, logger), nil
}

func newConn(ws *websocket.Conn, url string, writeTimeout time.Duration, logger *slog.Logger) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()

	c := &Conn{
		id:           id,
		url:          url,
		conn:         ws,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger.With("component", "transport", "conn_id", id),
		writeTimeout: writeTimeout,
	}
	c.writer = &Writer{c: c}
	c.reader = &Reader{c: c}

	c.logger.Info("connection open", "url", url)
	return c
}

// ID returns the connection's unique identifier
func (c *Conn) ID() string {
	return c.id
}

// URL returns the endpoint the connection was dialed to
func (c *Conn) URL() string {
	return c.url
}

// Context returns the connection's lifecycle context. It is cancelled when
// the connection closes.
func (c *Conn) Context() context.Context {
	return c.ctx
}

// Writer returns the send-only half
func (c *Conn) Writer() *Writer {
	return c.writer
}

// Reader returns the receive-only half
func (c *Conn) Reader() *Reader {
	return c.reader
}

// IsAlive returns true if the connection has not been closed
func (c *Conn) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Close closes the connection with a normal closure frame
func (c *Conn) Close(ctx context.Context) error {
	return c.CloseWithCode(ctx, websocket.CloseNormalClosure, "")
}

// CloseWithCode closes the connection with a close code and optional reason.
// Closing twice is a no-op.
func (c *Conn) CloseWithCode(ctx context.Context, code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.cancel()

	deadline := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	message := websocket.FormatCloseMessage(code, reason)
	c.conn.WriteControl(websocket.CloseMessage, message, deadline)

	c.logger.Info("connection closed", "code", code, "reason", reason)
	return c.conn.Close()
}

// Send writes line as one text message. Only one Send runs at a time; the
// lock is released on every path, including failure.
func (w *Writer) Send(ctx context.Context, line string) error {
	c := w.c
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.IsAlive() {
		return afkttv.ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Time{}
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)

	c.logger.Debug("send", "line", protocol.Redact(line))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		if !c.IsAlive() {
			return afkttv.ErrConnectionClosed
		}
		return fmt.Errorf("%w: %w", afkttv.ErrSend, err)
	}
	return nil
}

// Receive blocks until the next frame arrives. Graceful closure, including a
// local Close, returns io.EOF.
func (r *Reader) Receive(ctx context.Context) (string, error) {
	c := r.c
	if err := ctx.Err(); err != nil {
		return "", err
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if !c.IsAlive() || errors.Is(err, net.ErrClosed) {
			return "", io.EOF
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.logger.Info("server closed connection", "error", err)
			return "", io.EOF
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			c.logger.Warn("unexpected close", "error", err)
		}
		return "", fmt.Errorf("%w: %w", afkttv.ErrConnection, err)
	}
	return string(data), nil
}

var (
	_ afkttv.LineWriter  = (*Writer)(nil)
	_ afkttv.FrameReader = (*Reader)(nil)
)
