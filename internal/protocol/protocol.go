package protocol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/plsuwu/afkttv"
)

const (
	pingPrefix = "PING :"
	pongPrefix = "PONG :"
	chatToken  = "PRIVMSG"
)

var (
	chatPattern    = regexp.MustCompile(`^.*?display-name=(?P<chatter>[^; ]+).*? PRIVMSG #(?P<channel>\w+) :(?P<content>.*)`)
	statePattern   = regexp.MustCompile(`^(?:.*? )?:tmi\.twitch\.tv (?P<state>\w+)`)
	chatterPattern = regexp.MustCompile(`[@;]display-name=(?P<chatter>[^; ]+)`)
	channelPattern = regexp.MustCompile(`^.*? #(?P<channel>\w+)`)
)

// stateKeywords are the notice commands routed to parseState.
var stateKeywords = []string{"GLOBALUSERSTATE", "ROOMSTATE", "USERSTATE"}

// Parse classifies a single protocol line.
//
// Lines that look like a PRIVMSG or a state notice but do not carry the expected
// segments return an error wrapping afkttv.ErrParse.
func Parse(line string) (Event, error) {
	switch {
	case strings.HasPrefix(line, pingPrefix):
		return KeepaliveRequest{Server: line[len(pingPrefix):]}, nil
	case strings.HasPrefix(line, pongPrefix):
		return KeepaliveAck{Server: line[len(pongPrefix):]}, nil
	case strings.Contains(line, chatToken):
		return parseChat(line)
	case containsStateKeyword(line):
		return parseState(line)
	default:
		return Unclassified{Raw: line}, nil
	}
}

// Classify is the total form of Parse: a line Parse rejects becomes Unclassified.
func Classify(line string) Event {
	ev, err := Parse(line)
	if err != nil {
		return Unclassified{Raw: line}
	}
	return ev
}

// SplitFrame returns the non-empty protocol lines carried by one frame.
// Lines are separated by CRLF; a bare LF is accepted as well.
func SplitFrame(frame string) []string {
	parts := strings.Split(frame, "\n")
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSuffix(part, "\r")
		if part == "" {
			continue
		}
		lines = append(lines, part)
	}
	return lines
}

// ClassifyFrame classifies every line of a frame, one event per line.
func ClassifyFrame(frame string) []Event {
	lines := SplitFrame(frame)
	events := make([]Event, 0, len(lines))
	for _, line := range lines {
		events = append(events, Classify(line))
	}
	return events
}

func parseChat(line string) (Event, error) {
	m := chatPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: PRIVMSG without display-name, channel or content: %q", afkttv.ErrParse, line)
	}
	return ChatMessage{
		Chatter: m[chatPattern.SubexpIndex("chatter")],
		Channel: m[chatPattern.SubexpIndex("channel")],
		Content: m[chatPattern.SubexpIndex("content")],
	}, nil
}

func parseState(line string) (Event, error) {
	m := statePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: state notice without command: %q", afkttv.ErrParse, line)
	}

	kind, ok := ParseStateKind(m[statePattern.SubexpIndex("state")])
	if !ok {
		return nil, fmt.Errorf("%w: unknown state command %q", afkttv.ErrParse, m[statePattern.SubexpIndex("state")])
	}

	ev := StateChanged{State: kind}
	switch kind {
	case GlobalUserState:
		chatter, err := capture(chatterPattern, line, "chatter")
		if err != nil {
			return nil, err
		}
		ev.Chatter = chatter
	case UserState:
		chatter, err := capture(chatterPattern, line, "chatter")
		if err != nil {
			return nil, err
		}
		channel, err := capture(channelPattern, line, "channel")
		if err != nil {
			return nil, err
		}
		ev.Chatter = chatter
		ev.Channel = channel
	case RoomState:
		// ROOMSTATE carries a channel token but nothing is extracted from it.
	}
	return ev, nil
}

func capture(re *regexp.Regexp, line, group string) (string, error) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", fmt.Errorf("%w: missing %s in %q", afkttv.ErrParse, group, line)
	}
	return m[re.SubexpIndex(group)], nil
}

func containsStateKeyword(line string) bool {
	for _, kw := range stateKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}
