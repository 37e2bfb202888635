package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/societyhub/societyhub/internal/jobs"
)

// SessionStore deletes session records that expired before a cutoff.
type SessionStore interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionsPurgeJob removes expired login sessions from Postgres. Redis expires
// the live session data on its own.
type SessionsPurgeJob struct {
	Store   SessionStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSessionsPurgeJob wires dependencies for the purge handler.
func NewSessionsPurgeJob(store SessionStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsPurgeJob {
	return &SessionsPurgeJob{
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes TaskSessionsPurge tasks.
func (j *SessionsPurgeJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("sessions purge: handler not configured")
	}
	tracker := j.metrics().Track(TaskSessionsPurge)
	defer func() {
		err = tracker.End(err)
	}()

	var payload SessionsPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode purge payload: %w", asynq.SkipRetry)
		}
	}
	payload.Grace = max(payload.Grace, 0)

	cutoff := j.now().Add(-payload.Grace)
	removed, err := j.Store.PurgeExpired(ctx, cutoff)
	if err != nil {
		j.logger().Error("purge sessions", slog.Any("error", err))
		return err
	}
	tracker.Items(removed)
	j.logger().Info("purged sessions", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
	return nil
}

func (j *SessionsPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSessionsPurge))
	}
	return slog.Default().With(slog.String("job", TaskSessionsPurge))
}

func (j *SessionsPurgeJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SessionsPurgeJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
