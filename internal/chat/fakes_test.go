package chat

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/plsuwu/afkttv"
)

var discard = slog.New(slog.DiscardHandler)

// recordingWriter records every line it is asked to send. Send number failAt
// (1-based) fails with err.
type recordingWriter struct {
	mu     sync.Mutex
	lines  []string
	failAt int
	err    error
}

func (w *recordingWriter) Send(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.failAt > 0 && len(w.lines)+1 == w.failAt {
		return w.err
	}
	w.lines = append(w.lines, line)
	return nil
}

func (w *recordingWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

// scriptedReader hands out frames in order, then io.EOF. Before each
// Receive it notes how many lines the writer had sent.
type scriptedReader struct {
	frames   []string
	next     int
	writer   *recordingWriter
	sentAt   []int
	finalErr error
}

func (r *scriptedReader) Receive(ctx context.Context) (string, error) {
	if r.writer != nil {
		r.sentAt = append(r.sentAt, len(r.writer.Lines()))
	}
	if r.next >= len(r.frames) {
		if r.finalErr != nil {
			return "", r.finalErr
		}
		return "", io.EOF
	}
	frame := r.frames[r.next]
	r.next++
	return frame, nil
}

var (
	_ afkttv.LineWriter  = (*recordingWriter)(nil)
	_ afkttv.FrameReader = (*scriptedReader)(nil)
)
