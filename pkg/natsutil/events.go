package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
)

const (
	eventSource          = "netrunner/runner"
	RunCompletedType     = "com.carverauto.netrunner.run.completed"
	DefaultRunSubject    = "events.netrunner.run"
	DefaultEventStream   = "NETRUNNER_EVENTS"
	cloudEventsVersion   = "1.0"
	jsonContentType      = "application/json"
	defaultConnectWait   = 5 * time.Second
	defaultReconnectWait = 2 * time.Second
)

var errNATSConfigRequired = errors.New("nats config is required")

// streamPublisher is the part of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventPublisher publishes CloudEvents to a JetStream subject.
type EventPublisher struct {
	js      streamPublisher
	stream  string
	subject string
	logger  logger.Logger
	now     func() time.Time
}

// NewEventPublisher creates a publisher for subject on stream.
func NewEventPublisher(js streamPublisher, stream, subject string, log logger.Logger) *EventPublisher {
	if subject == "" {
		subject = DefaultRunSubject
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EventPublisher{
		js:      js,
		stream:  stream,
		subject: subject,
		logger:  log,
		now:     time.Now,
	}
}

// Subject returns the subject events are published on.
func (p *EventPublisher) Subject() string {
	return p.subject
}

// PublishRunCompleted publishes a run.completed event for one fan-out.
func (p *EventPublisher) PublishRunCompleted(ctx context.Context, data *models.RunCompletedData) error {
	ts := p.now().UTC()

	event := models.CloudEvent{
		SpecVersion:     cloudEventsVersion,
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            RunCompletedType,
		DataContentType: jsonContentType,
		Subject:         p.subject,
		Time:            &ts,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	ack, err := p.js.Publish(ctx, p.subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", p.subject).
		Uint64("seq", ack.Sequence).
		Msg("Published run event")

	return nil
}

// Connect dials NATS, ensures the event stream covers the configured
// subject and returns a publisher bound to it. The caller owns the
// returned connection.
func Connect(ctx context.Context, cfg *models.NATSConfig, log logger.Logger) (*EventPublisher, *nats.Conn, error) {
	if cfg == nil {
		return nil, nil, errNATSConfigRequired
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	opts, err := connectOptions(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var js jetstream.JetStream

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream := cfg.Stream
	if stream == "" {
		stream = DefaultEventStream
	}

	subject := cfg.Subject
	if subject == "" {
		subject = DefaultRunSubject
	}

	if err := ensureStream(ctx, js, stream, subject, log); err != nil {
		nc.Close()
		return nil, nil, err
	}

	return NewEventPublisher(js, stream, subject, log), nc, nil
}

func connectOptions(cfg *models.NATSConfig, log logger.Logger) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name("netrunner"),
		nats.Timeout(defaultConnectWait),
		nats.ReconnectWait(defaultReconnectWait),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	if cfg.TLS != nil {
		tlsConf, err := TLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	return opts, nil
}

// ensureStream creates the stream when missing and widens its subjects when
// it exists without covering subject.
func ensureStream(ctx context.Context, js jetstream.JetStream, stream, subject string, log logger.Logger) error {
	s, err := js.Stream(ctx, stream)
	if err != nil {
		if !isStreamMissingErr(err) {
			return fmt.Errorf("failed to look up stream %s: %w", stream, err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     stream,
			Subjects: []string{subject},
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", stream, err)
		}

		log.Info().Str("stream", stream).Str("subject", subject).Msg("Created NATS JetStream stream")

		return nil
	}

	cfg := s.CachedInfo().Config

	subjects := ensureSubjectList(append([]string(nil), cfg.Subjects...), subject)
	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if _, err := js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to add subject %s to stream %s: %w", subject, stream, err)
	}

	log.Info().Str("stream", stream).Str("subject", subject).Msg("Added subject to NATS JetStream stream")

	return nil
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}

// ensureSubjectList appends subject unless an existing pattern covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject applies NATS wildcard rules: "*" matches one token, ">"
// matches the rest.
func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}
