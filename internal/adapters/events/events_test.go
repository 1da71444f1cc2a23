package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeOutbox struct {
	mu           sync.Mutex
	records      []ports.OutboxRecord
	published    []uuid.UUID
	failed       []uuid.UUID
	deadLettered []uuid.UUID
}

func (f *fakeOutbox) Enqueue(context.Context, ports.OutboxEvent) error { return nil }

func (f *fakeOutbox) ClaimUnpublished(_ context.Context, limit int, _ string, _ time.Time) ([]ports.OutboxRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) > limit {
		return append([]ports.OutboxRecord(nil), f.records[:limit]...), nil
	}
	out := f.records
	f.records = nil
	return out, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, id uuid.UUID, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, _, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeOutbox) MarkDeadLettered(_ context.Context, id uuid.UUID, _, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadLettered = append(f.deadLettered, id)
	return nil
}

type fakePublisher struct {
	failFor map[string]error
	keys    []string
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, _ []byte, partitionKey string) error {
	if err := p.failFor[eventType]; err != nil {
		return err
	}
	p.keys = append(p.keys, partitionKey)
	return nil
}

func TestOutboxWorkerProcessOnce(t *testing.T) {
	t.Parallel()

	ok := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "user.created", PartitionKey: "user-1", Payload: []byte(`{}`)}
	retry := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "user.email_confirmed", PartitionKey: "user-2", RetryCount: 1}
	lastTry := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "user.email_confirmed", PartitionKey: "user-3", RetryCount: 2}
	exhausted := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "user.created", PartitionKey: "user-4", RetryCount: 3}

	outbox := &fakeOutbox{records: []ports.OutboxRecord{ok, retry, lastTry, exhausted}}
	publisher := &fakePublisher{failFor: map[string]error{"user.email_confirmed": errors.New("broker down")}}
	worker := NewOutboxWorker(discardLogger(), outbox, publisher, time.Second, 10, time.Minute, 3)

	require.NoError(t, worker.processOnce(context.Background()))
	require.Equal(t, []uuid.UUID{ok.OutboxID}, outbox.published)
	require.Equal(t, []uuid.UUID{retry.OutboxID}, outbox.failed)
	require.ElementsMatch(t, []uuid.UUID{lastTry.OutboxID, exhausted.OutboxID}, outbox.deadLettered)
	require.Equal(t, []string{"user-1"}, publisher.keys)
}

func TestOutboxWorkerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	outbox := &fakeOutbox{records: []ports.OutboxRecord{{OutboxID: uuid.New(), EventType: "user.created"}}}
	worker := NewOutboxWorker(discardLogger(), outbox, &fakePublisher{}, 10*time.Millisecond, 0, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		outbox.mu.Lock()
		defer outbox.mu.Unlock()
		return len(outbox.published) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

type recordingWriter struct {
	messages []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisherRoutesTopics(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{}
	publisher := &KafkaPublisher{
		writer:       writer,
		defaultTopic: "intranet.credentials",
		topicByEvent: map[string]string{"user.created": "intranet.users"},
	}

	require.NoError(t, publisher.Publish(context.Background(), "user.created", []byte(`{"a":1}`), "user-1"))
	require.NoError(t, publisher.Publish(context.Background(), "credential.password_reset", []byte(`{}`), "user-2"))
	require.Len(t, writer.messages, 2)
	require.Equal(t, "intranet.users", writer.messages[0].Topic)
	require.Equal(t, "user-1", string(writer.messages[0].Key))
	require.Equal(t, "intranet.credentials", writer.messages[1].Topic)
	require.Equal(t, "event_type", writer.messages[1].Headers[0].Key)

	bare := &KafkaPublisher{writer: writer}
	require.Equal(t, "user.created", bare.topicFor("user.created"))

	_, err := NewKafkaPublisher(nil, "", nil)
	require.Error(t, err)
}

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (p *fakePurger) PurgeExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, before)
	if p.err != nil {
		return 0, p.err
	}
	return 3, nil
}

func TestTokenPurgeJobRunOnceAppliesRetention(t *testing.T) {
	t.Parallel()

	purger := &fakePurger{}
	job := NewTokenPurgeJob(discardLogger(), purger, "", 24*time.Hour)
	now := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	job.nowFn = func() time.Time { return now }

	purged, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), purged)
	require.Equal(t, []time.Time{now.Add(-24 * time.Hour)}, purger.cutoffs)

	purger.err = errors.New("db down")
	_, err = job.RunOnce(context.Background())
	require.Error(t, err)
}

func TestTokenPurgeJobRun(t *testing.T) {
	t.Parallel()

	bad := NewTokenPurgeJob(discardLogger(), &fakePurger{}, "not a schedule", 0)
	require.Error(t, bad.Run(context.Background()))

	purger := &fakePurger{}
	job := NewTokenPurgeJob(discardLogger(), purger, "* * * * * *", 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()

	require.Eventually(t, func() bool {
		purger.mu.Lock()
		defer purger.mu.Unlock()
		return len(purger.cutoffs) > 0
	}, 3*time.Second, 20*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
