package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/plsuwu/afkttv"
	"github.com/plsuwu/afkttv/internal/protocol"
)

// Login sends the handshake through w, one line at a time and in order. The
// first failure aborts the sequence; a partial handshake is not recoverable.
func Login(ctx context.Context, w afkttv.LineWriter, creds afkttv.Credentials, channel string) error {
	for _, line := range protocol.Handshake(creds, channel) {
		if err := w.Send(ctx, line); err != nil {
			verb, _, _ := strings.Cut(line, " ")
			return fmt.Errorf("%w: %s: %w", afkttv.ErrHandshake, verb, err)
		}
	}
	return nil
}
