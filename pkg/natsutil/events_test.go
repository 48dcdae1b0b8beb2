package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/models"
)

var errTestFixture = errors.New("fixture error")

type published struct {
	subject string
	payload []byte
}

type fakeJetStream struct {
	msgs []published
	err  error
}

func (f *fakeJetStream) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.msgs = append(f.msgs, published{subject: subject, payload: payload})

	return &jetstream.PubAck{Stream: DefaultEventStream, Sequence: uint64(len(f.msgs))}, nil
}

func TestPublishRunCompleted(t *testing.T) {
	js := &fakeJetStream{}
	p := NewEventPublisher(js, DefaultEventStream, "", nil)
	p.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	data := &models.RunCompletedData{
		RunID:      "run-1",
		Task:       "get_facts",
		Filters:    &models.DeviceFilters{Group: "edge"},
		Targeted:   3,
		Failed:     1,
		DurationMS: 1500,
	}

	require.NoError(t, p.PublishRunCompleted(context.Background(), data))
	require.Len(t, js.msgs, 1)
	assert.Equal(t, DefaultRunSubject, js.msgs[0].subject)

	var event struct {
		SpecVersion string                  `json:"specversion"`
		ID          string                  `json:"id"`
		Type        string                  `json:"type"`
		Source      string                  `json:"source"`
		Time        time.Time               `json:"time"`
		Data        models.RunCompletedData `json:"data"`
	}

	require.NoError(t, json.Unmarshal(js.msgs[0].payload, &event))
	assert.Equal(t, "1.0", event.SpecVersion)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, RunCompletedType, event.Type)
	assert.Equal(t, "netrunner/runner", event.Source)
	assert.Equal(t, 2025, event.Time.Year())
	assert.Equal(t, *data, event.Data)
}

func TestPublishRunCompletedError(t *testing.T) {
	p := NewEventPublisher(&fakeJetStream{err: errTestFixture}, DefaultEventStream, "custom.subject", nil)

	assert.Equal(t, "custom.subject", p.Subject())
	require.ErrorIs(t, p.PublishRunCompleted(context.Background(), &models.RunCompletedData{}), errTestFixture)
}

func TestEnsureSubjectList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subjects []string
		subject  string
		want     []string
	}{
		{
			name:     "adds subject when list empty",
			subjects: nil,
			subject:  "events.netrunner.run",
			want:     []string{"events.netrunner.run"},
		},
		{
			name:     "keeps list when wildcard matches",
			subjects: []string{"events.netrunner.*"},
			subject:  "events.netrunner.run",
			want:     []string{"events.netrunner.*"},
		},
		{
			name:     "keeps list when greater wildcard matches",
			subjects: []string{"events.>"},
			subject:  "events.netrunner.run",
			want:     []string{"events.>"},
		},
		{
			name:     "appends when unmatched",
			subjects: []string{"logs.syslog.*"},
			subject:  "events.netrunner.run",
			want:     []string{"logs.syslog.*", "events.netrunner.run"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ensureSubjectList(append([]string(nil), tc.subjects...), tc.subject)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchesSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		subject  string
		expected bool
	}{
		{"exact match", "events.netrunner.run", "events.netrunner.run", true},
		{"single wildcard", "events.*.run", "events.netrunner.run", true},
		{"greater wildcard", "events.>", "events.netrunner.run", true},
		{"greater wildcard needs a token", "events.netrunner.run.>", "events.netrunner.run", false},
		{"no match length", "events.*", "events.netrunner.run", false},
		{"no match tokens", "logs.syslog.*", "events.netrunner.run", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, matchesSubject(tc.pattern, tc.subject))
		})
	}
}

func TestIsStreamMissingErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"jetstream no stream response", jetstream.ErrNoStreamResponse, true},
		{"jetstream stream not found", jetstream.ErrStreamNotFound, true},
		{"nats no stream response", nats.ErrNoStreamResponse, true},
		{"nats stream not found", nats.ErrStreamNotFound, true},
		{"nats no responders", nats.ErrNoResponders, true},
		{"other error", errTestFixture, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, isStreamMissingErr(tc.err))
		})
	}
}

func TestConnectRequiresConfig(t *testing.T) {
	_, _, err := Connect(context.Background(), nil, nil)
	require.ErrorIs(t, err, errNATSConfigRequired)

	_, err = TLSConfig(nil)
	require.ErrorIs(t, err, ErrMTLSRequired)
}
