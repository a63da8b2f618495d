// Package console renders chat events as styled terminal lines.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/plsuwu/afkttv/internal/logging"
	"github.com/plsuwu/afkttv/internal/protocol"
)

// Printer writes one line per event. It is safe for concurrent use, so the
// chat and events sessions can share one.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	timestamp lipgloss.Style
	channel   lipgloss.Style
	state     lipgloss.Style
	faint     lipgloss.Style
	renderer  *lipgloss.Renderer
}

// Option configures a Printer.
type Option func(*Printer)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Printer) {
		p.now = now
	}
}

// New creates a printer writing to out. Colors follow out's capabilities;
// a non-terminal writer gets plain text.
func New(out io.Writer, opts ...Option) *Printer {
	renderer := lipgloss.NewRenderer(out)

	p := &Printer{
		out:       out,
		now:       time.Now,
		renderer:  renderer,
		timestamp: renderer.NewStyle().Faint(true),
		channel:   renderer.NewStyle().Foreground(lipgloss.Color("243")),
		state:     renderer.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		faint:     renderer.NewStyle().Faint(true),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Print renders e. It matches chat.EventHandler.
func (p *Printer) Print(e protocol.Event) {
	line := p.format(e)
	if line == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.timestamp.Render("["+p.now().Format(logging.TimeLayout)+"]")+" "+line)
}

func (p *Printer) format(e protocol.Event) string {
	switch e := e.(type) {
	case protocol.ChatMessage:
		return p.channel.Render("#"+e.Channel) + " " +
			p.chatterStyle(e.Chatter).Render(e.Chatter) + ": " +
			e.Content
	case protocol.StateChanged:
		parts := []string{p.state.Render(e.State.String())}
		if e.Chatter != "" {
			parts = append(parts, p.chatterStyle(e.Chatter).Render(e.Chatter))
		}
		if e.Channel != "" {
			parts = append(parts, p.channel.Render("#"+e.Channel))
		}
		return strings.Join(parts, " ")
	case protocol.KeepaliveRequest:
		return p.faint.Render("PING " + e.Server)
	case protocol.KeepaliveAck:
		return p.faint.Render("PONG " + e.Server)
	case protocol.Unclassified:
		if e.Raw == "" {
			return ""
		}
		return p.faint.Render(e.Raw)
	}
	return ""
}

// chatterStyle picks a stable color per chatter name, skipping the 16 theme
// colors and the grayscale ramp.
func (p *Printer) chatterStyle(name string) lipgloss.Style {
	hash := uint32(0)
	for _, r := range name {
		hash = hash*31 + uint32(r)
	}
	return p.renderer.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("%d", 17+hash%215))).Bold(true)
}
