package afkttv

import "errors"

// Endpoints of the chat service.
const (
	// URLChat carries the tags-prefixed IRC chat protocol.
	URLChat = "wss://irc-ws.chat.twitch.tv/"
	// URLEvents is the topic-subscription endpoint. Only its transport and
	// keepalive are driven; it has no handshake.
	URLEvents = "wss://pubsub-edge.twitch.tv/v1"
)

// Fixed protocol lines.
const (
	ServerHost        = "tmi.twitch.tv"
	CapabilityRequest = "CAP REQ :twitch.tv/tags twitch.tv/commands"
	KeepaliveProbe    = "PING"
	KeepaliveReply    = "PONG :" + ServerHost
	EventsProbe       = `{"type":"PING"}`
	DefaultPercent    = 100
	DefaultAppName    = "afkttv"
	DefaultConfigFile = "config.toml"
)

// Standard error messages
const (
	// Connection errors
	ErrMsgDial             = "failed to open connection"
	ErrMsgSend             = "failed to send line"
	ErrMsgConnectionClosed = "connection is closed"
	ErrMsgSessionLost      = "chat session lost"

	// Protocol errors
	ErrMsgHandshake = "handshake failed"
	ErrMsgParse     = "malformed protocol line"

	// Configuration errors
	ErrMsgConfig = "unusable credentials file"
)

// Sentinel errors. Callers match them with errors.Is; every layer wraps them
// with context using fmt.Errorf and %w.
var (
	ErrConnection       = errors.New(ErrMsgDial)
	ErrSend             = errors.New(ErrMsgSend)
	ErrConnectionClosed = errors.New(ErrMsgConnectionClosed)
	ErrSessionLost      = errors.New(ErrMsgSessionLost)
	ErrHandshake        = errors.New(ErrMsgHandshake)
	ErrParse            = errors.New(ErrMsgParse)
	ErrConfig           = errors.New(ErrMsgConfig)
)
