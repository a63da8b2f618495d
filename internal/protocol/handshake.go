package protocol

import (
	"fmt"
	"strings"

	"github.com/plsuwu/afkttv"
)

const (
	oauthPrefix = "oauth:"
	passPrefix  = "PASS "
)

// Handshake builds the five lines that authenticate and join a channel.
//
// The order is CAP, PASS, NICK, USER, JOIN and must not change: the server binds
// the nick/user pair before it processes JOIN.
func Handshake(creds afkttv.Credentials, channel string) []string {
	token := strings.TrimPrefix(creds.Auth, oauthPrefix)
	return []string{
		afkttv.CapabilityRequest,
		passPrefix + oauthPrefix + token,
		"NICK " + creds.User,
		fmt.Sprintf("USER %s 8 * :%s", creds.User, creds.User),
		"JOIN #" + NormalizeChannel(channel),
	}
}

// NormalizeChannel strips a leading '#' and lower-cases the channel name.
func NormalizeChannel(channel string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(channel), "#"))
}

// Redact hides the token of a PASS line so the line can be logged.
func Redact(line string) string {
	if strings.HasPrefix(line, passPrefix) {
		return passPrefix + oauthPrefix + "********"
	}
	return line
}
