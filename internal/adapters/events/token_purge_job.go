package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// TokenPurger deletes credential tokens that expired before the cutoff.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

// TokenPurgeJob runs the purge on a cron schedule (seconds field included).
type TokenPurgeJob struct {
	logger    *slog.Logger
	purger    TokenPurger
	schedule  string
	retention time.Duration
	nowFn     func() time.Time
}

func NewTokenPurgeJob(logger *slog.Logger, purger TokenPurger, schedule string, retention time.Duration) *TokenPurgeJob {
	if schedule == "" {
		schedule = "0 0 3 * * *"
	}
	if retention < 0 {
		retention = 0
	}
	return &TokenPurgeJob{
		logger:    logger,
		purger:    purger,
		schedule:  schedule,
		retention: retention,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// Run schedules the purge and blocks until ctx is done. A running purge is
// allowed to finish before Run returns.
func (j *TokenPurgeJob) Run(ctx context.Context) error {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(j.schedule, func() { _, _ = j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule token purge %q: %w", j.schedule, err)
	}
	c.Start()
	j.logger.InfoContext(ctx, "token purge scheduled",
		"module", "events.token_purge",
		"layer", "adapter",
		"operation", "schedule_token_purge",
		"outcome", "success",
		"schedule", j.schedule,
		"retention", j.retention.String(),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

func (j *TokenPurgeJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.nowFn().Add(-j.retention)
	purged, err := j.purger.PurgeExpiredTokens(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "token purge failed",
			"module", "events.token_purge",
			"layer", "adapter",
			"operation", "purge_expired_tokens",
			"outcome", "failure",
			"cutoff", cutoff,
			"error", err,
		)
		return 0, err
	}
	j.logger.InfoContext(ctx, "token purge completed",
		"module", "events.token_purge",
		"layer", "adapter",
		"operation", "purge_expired_tokens",
		"outcome", "success",
		"cutoff", cutoff,
		"purged_count", purged,
	)
	return purged, nil
}
