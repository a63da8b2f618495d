package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/plsuwu/afkttv/internal/protocol"
)

// MetricsConfig configures the session metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "afkttv").
	Namespace string

	// Subsystem is the metrics subsystem (default: "chat").
	Subsystem string

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the session metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics counts what a session sends and receives. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	framesReceived   prometheus.Counter
	events           *prometheus.CounterVec
	parseFailures    prometheus.Counter
	keepaliveProbes  prometheus.Counter
	keepaliveReplies prometheus.Counter
}

// NewMetrics registers the session collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{
		Namespace: "afkttv",
		Subsystem: "chat",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)
	return &Metrics{
		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "frames_received_total",
			Help:      "Frames read from the connection.",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "events_total",
			Help:      "Classified protocol lines by event kind.",
		}, []string{"kind"}),
		parseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "parse_failures_total",
			Help:      "Lines that looked like a chat message or state notice but could not be parsed.",
		}),
		keepaliveProbes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "keepalive_probes_total",
			Help:      "Liveness probes sent by the keepalive scheduler.",
		}),
		keepaliveReplies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "keepalive_replies_total",
			Help:      "Replies sent to server liveness probes.",
		}),
	}
}

func (m *Metrics) frameReceived() {
	if m != nil {
		m.framesReceived.Inc()
	}
}

func (m *Metrics) event(kind protocol.Kind) {
	if m != nil {
		m.events.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) parseFailure() {
	if m != nil {
		m.parseFailures.Inc()
	}
}

func (m *Metrics) probeSent() {
	if m != nil {
		m.keepaliveProbes.Inc()
	}
}

func (m *Metrics) replySent() {
	if m != nil {
		m.keepaliveReplies.Inc()
	}
}
