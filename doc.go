// Package afkttv is a long-lived client for the Twitch chat protocol carried over a
// WebSocket.
//
// The client authenticates, joins one channel, keeps the connection alive against idle
// disconnection and classifies incoming protocol lines into events.
//
// # Architecture
//
// A session owns one connection split into a writer and a reader:
//
//	Dial ──► Login (5 ordered lines) ──┬──► Keepalive  (writes PING every 240s + jitter)
//	                                   └──► Dispatcher (reads frames, replies to PING)
//
// The writer is shared by the keepalive scheduler and the dispatcher and serializes them
// with a per-send lock. The reader has a single consumer.
//
// # Quick Start
//
//	creds, err := config.LoadOrPrompt(path, config.NewPrompter(os.Stdin, os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = chat.RunChat(ctx, chat.Config{
//	    URL:         afkttv.URLChat,
//	    Channel:     "bob",
//	    Credentials: creds,
//	    OnEvent:     printer.Print,
//	})
//
// # Protocol Format
//
// Frames are text messages holding one or more CRLF-terminated lines:
//
//	@display-name=Alice;id=1 :alice!alice@alice.tmi.twitch.tv PRIVMSG #bob :hello world
//
// Each non-empty line maps to exactly one event: ChatMessage, StateChanged,
// KeepaliveRequest, KeepaliveAck or Unclassified.
//
// # Handshake
//
//	CAP REQ :twitch.tv/tags twitch.tv/commands
//	PASS oauth:<token>
//	NICK <user>
//	USER <user> 8 * :<user>
//	JOIN #<channel>
//
// Order matters: the server binds the nick/user pair before JOIN is processed.
//
// # Failure Model
//
//   - No reconnect: a dropped connection ends the session with ErrSessionLost
//   - A failed send ends the session with an error wrapping ErrSend
//   - Malformed PRIVMSG/state lines degrade to Unclassified unless strict parsing is on
//   - Cancelling the context closes the connection with a normal close frame
//
// # Important
//
//   - Never log a PASS line verbatim; use protocol.Redact
//   - The keepalive cadence is the only outbound pacing; there is no rate limiter
package afkttv
