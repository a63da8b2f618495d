package protocol

// Kind identifies the variant of an Event.
type Kind int

const (
	KindUnclassified Kind = iota
	KindKeepaliveRequest
	KindKeepaliveAck
	KindChatMessage
	KindStateChanged
)

var kindNames = map[Kind]string{
	KindUnclassified:     "unclassified",
	KindKeepaliveRequest: "keepalive_request",
	KindKeepaliveAck:     "keepalive_ack",
	KindChatMessage:      "chat_message",
	KindStateChanged:     "state_changed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// StateKind names the state notice a StateChanged event was built from.
type StateKind int

const (
	GlobalUserState StateKind = iota
	RoomState
	UserState
)

func (s StateKind) String() string {
	switch s {
	case GlobalUserState:
		return "GLOBALUSERSTATE"
	case RoomState:
		return "ROOMSTATE"
	case UserState:
		return "USERSTATE"
	default:
		return "UNKNOWN"
	}
}

// ParseStateKind maps a protocol command to its StateKind.
func ParseStateKind(command string) (StateKind, bool) {
	switch command {
	case "GLOBALUSERSTATE":
		return GlobalUserState, true
	case "ROOMSTATE":
		return RoomState, true
	case "USERSTATE":
		return UserState, true
	default:
		return 0, false
	}
}

// Event is one classified protocol line.
//
// The set of implementations is closed: ChatMessage, StateChanged,
// KeepaliveRequest, KeepaliveAck and Unclassified.
type Event interface {
	Kind() Kind
	event()
}

// ChatMessage is a PRIVMSG posted to a channel.
type ChatMessage struct {
	Chatter string
	Channel string
	Content string
}

// StateChanged is a GLOBALUSERSTATE, ROOMSTATE or USERSTATE notice.
// Chatter and Channel are empty when the notice does not carry them.
type StateChanged struct {
	State   StateKind
	Chatter string
	Channel string
}

// KeepaliveRequest is a server PING that must be answered with a PONG.
type KeepaliveRequest struct {
	Server string
}

// KeepaliveAck is the server's PONG to one of our probes.
type KeepaliveAck struct {
	Server string
}

// Unclassified is any line no other variant matched.
type Unclassified struct {
	Raw string
}

func (ChatMessage) Kind() Kind      { return KindChatMessage }
func (StateChanged) Kind() Kind     { return KindStateChanged }
func (KeepaliveRequest) Kind() Kind { return KindKeepaliveRequest }
func (KeepaliveAck) Kind() Kind     { return KindKeepaliveAck }
func (Unclassified) Kind() Kind     { return KindUnclassified }

func (ChatMessage) event()      {}
func (StateChanged) event()     {}
func (KeepaliveRequest) event() {}
func (KeepaliveAck) event()     {}
func (Unclassified) event()     {}
