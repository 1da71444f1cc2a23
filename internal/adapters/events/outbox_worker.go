package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

// OutboxWorker relays credential events committed to the outbox. Records are
// claimed per batch so concurrent workers never publish the same row twice.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
	nowFn      func() time.Time
}

// NewOutboxWorker constructs the outbox relay loop. Zero values fall back to
// defaults.
func NewOutboxWorker(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxWorker{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the periodic outbox publish loop until context cancellation.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_relay",
				"layer", "adapter",
				"operation", "outbox_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type disposition int

const (
	dispositionPublished disposition = iota
	dispositionRetry
	dispositionDeadLettered
)

type batchTally struct {
	published    int
	failed       int
	deadLettered int
}

func (t *batchTally) add(d disposition) {
	switch d {
	case dispositionPublished:
		t.published++
	case dispositionRetry:
		t.failed++
	case dispositionDeadLettered:
		t.deadLettered++
	}
}

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, claimToken, w.nowFn().Add(w.claimTTL))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	now := w.nowFn()
	var tally batchTally
	for _, rec := range records {
		tally.add(w.relay(ctx, rec, claimToken, now))
	}
	w.logger.InfoContext(ctx, "outbox batch processed",
		"module", "events.outbox_relay",
		"layer", "adapter",
		"operation", "outbox_process_once",
		"outcome", "success",
		"batch_size", len(records),
		"published_count", tally.published,
		"failed_count", tally.failed,
		"dead_lettered_count", tally.deadLettered,
	)
	return nil
}

// relay publishes one claimed record and settles its state. Records that
// exhausted their retries are dead-lettered without another publish attempt.
func (w *OutboxWorker) relay(ctx context.Context, rec ports.OutboxRecord, claimToken string, now time.Time) disposition {
	if rec.RetryCount >= w.maxRetries {
		w.mark(ctx, rec, w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, "retry threshold reached before publish", now))
		return dispositionDeadLettered
	}

	err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey)
	if err == nil {
		w.mark(ctx, rec, w.outbox.MarkPublished(ctx, rec.OutboxID, claimToken, now))
		return dispositionPublished
	}

	attempts := rec.RetryCount + 1
	fields := []any{
		"module", "events.outbox_relay",
		"layer", "adapter",
		"operation", "publish_event",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"payload_bytes", len(rec.Payload),
		"retry_count", attempts,
		"error", err,
	}
	if attempts >= w.maxRetries {
		w.logger.ErrorContext(ctx, "outbox message moved to dlq", fields...)
		w.mark(ctx, rec, w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, err.Error(), now))
		return dispositionDeadLettered
	}
	w.logger.WarnContext(ctx, "outbox publish failed; retry scheduled", fields...)
	w.mark(ctx, rec, w.outbox.MarkFailed(ctx, rec.OutboxID, claimToken, err.Error(), now))
	return dispositionRetry
}

// mark logs a failed state transition. The claim expires on its own, so the
// record is retried by a later batch.
func (w *OutboxWorker) mark(ctx context.Context, rec ports.OutboxRecord, err error) {
	if err == nil {
		return
	}
	w.logger.WarnContext(ctx, "outbox state update failed",
		"module", "events.outbox_relay",
		"layer", "adapter",
		"operation", "outbox_mark",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"error", err,
	)
}
