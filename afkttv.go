package afkttv

import "context"

// LineWriter is the send-only half of a chat connection.
//
// Implementations serialize concurrent callers: only one line is mid-send at a
// time, and a failed send never leaves the writer locked.
//
// Example usage:
//
//	conn, err := websocket.Dial(ctx, afkttv.URLChat, websocket.DefaultDialConfig())
//	if err != nil {
//	    return err
//	}
//	var w afkttv.LineWriter = conn.Writer()
//	w.Send(ctx, "JOIN #bob")
type LineWriter interface {
	// Send writes a single protocol line as one outbound message.
	//
	// Returns an error wrapping ErrSend if the write fails, or
	// ErrConnectionClosed if the connection was already closed.
	Send(ctx context.Context, line string) error
}

// FrameReader is the receive-only half of a chat connection.
//
// A FrameReader has exactly one consumer, so implementations need no locking.
type FrameReader interface {
	// Receive blocks until a frame arrives or the connection closes.
	//
	// A frame may hold several CRLF-separated protocol lines. Graceful closure
	// is reported as io.EOF; any other failure wraps ErrConnection.
	Receive(ctx context.Context) (string, error)
}

// Credentials identify the chat account used for the handshake.
//
// The value is loaded once at process start and never modified.
type Credentials struct {
	// Auth is the OAuth token, with or without the "oauth:" prefix.
	Auth string `toml:"auth"`

	// User is the login name used for NICK, USER and the default channel.
	User string `toml:"user"`
}
