// Package publisher streams animation frames to NATS subscribers.
package publisher

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Mwapsam/tracker/internal/animation"
)

// DefaultSubjectPrefix is prepended to every published subject.
const DefaultSubjectPrefix = "tracker.animation"

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Metrics receives publish outcomes.
type Metrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSDroppedInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// Config holds configuration for a Publisher.
type Config struct {
	// SubjectPrefix for published subjects (default: tracker.animation).
	SubjectPrefix string

	// Rate caps frame messages per second. Zero publishes every frame.
	// Begin and end messages are never throttled.
	Rate float64

	Metrics Metrics
	Logger  zerolog.Logger
}

// PositionMessage is the payload for a single marker position.
type PositionMessage struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	Segment   int       `json:"segment"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Heading   float64   `json:"heading"`
	Progress  float64   `json:"progress"`
	Done      bool      `json:"done"`
}

// RouteMessage announces the start or end of a run.
type RouteMessage struct {
	Key       string           `json:"key"`
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Route     *animation.Route `json:"route,omitempty"`
}

// Publisher is an animation.Sink that publishes to NATS. Frames for a run
// go to "<prefix>.<key>.position"; begin/end go to "<prefix>.<key>.route".
type Publisher struct {
	conn    Conn
	nc      *nats.Conn
	prefix  string
	limiter *rate.Limiter
	metrics Metrics
	logger  zerolog.Logger
	now     func() time.Time

	key string
}

// New creates a Publisher over an existing connection.
func New(conn Conn, cfg Config) *Publisher {
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return &Publisher{
		conn:    conn,
		prefix:  prefix,
		limiter: limiter,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Connect dials NATS at url and returns a Publisher that owns the connection.
func Connect(url string, cfg Config) (*Publisher, error) {
	m := cfg.Metrics
	log := cfg.Logger
	nc, err := nats.Connect(url,
		nats.Name("tracker"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	p := New(nc, cfg)
	p.nc = nc
	return p, nil
}

// Close drains and closes an owned connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// Begin implements animation.Sink.
func (p *Publisher) Begin(r animation.Route) {
	p.key = r.Key
	p.publish(p.subject("route"), RouteMessage{Key: r.Key, Type: animation.MessageBegin, Timestamp: p.now(), Route: &r})
}

// Frame implements animation.Sink. Frames over the rate limit are dropped;
// the final frame is always sent.
func (p *Publisher) Frame(f animation.Frame) {
	if p.limiter != nil && !f.Done && !p.limiter.Allow() {
		if p.metrics != nil {
			p.metrics.NATSDroppedInc()
		}
		return
	}
	p.publish(p.subject("position"), PositionMessage{
		Key:       p.key,
		Timestamp: p.now(),
		Segment:   f.Segment,
		Lat:       f.Position.Lat,
		Lng:       f.Position.Lng,
		Heading:   f.Heading,
		Progress:  f.Progress,
		Done:      f.Done,
	})
}

// End implements animation.Sink.
func (p *Publisher) End() {
	p.publish(p.subject("route"), RouteMessage{Key: p.key, Type: animation.MessageEnd, Timestamp: p.now()})
}

func (p *Publisher) subject(kind string) string {
	return p.prefix + "." + subjectToken(p.key) + "." + kind
}

func (p *Publisher) publish(subject string, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("encoding animation message")
		return
	}

	start := time.Now()
	err = p.conn.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("nats publish failed")
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// Tokens cannot contain whitespace, wildcards or separators.
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
