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
	"github.com/societyhub/societyhub/internal/roles"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RolesRefresher reloads a society's role collection into the cache.
type RolesRefresher interface {
	Refresh(ctx context.Context, societyID int64) (int, error)
}

// BulkNoticeJob replaces the optimistic cache entry written by a bulk action
// with the stored state, which carries database timestamps and counts.
type BulkNoticeJob struct {
	Roles   RolesRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewBulkNoticeJob wires dependencies for the notice handler.
func NewBulkNoticeJob(refresher RolesRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *BulkNoticeJob {
	return &BulkNoticeJob{Roles: refresher, Logger: logger, Metrics: metrics}
}

// Handle processes TaskRolesBulkNotice tasks.
func (j *BulkNoticeJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Roles == nil {
		return errors.New("roles bulk notice: handler not configured")
	}
	tracker := j.metrics().Track(TaskRolesBulkNotice)
	defer func() {
		err = tracker.End(err)
	}()

	var notice roles.BulkNotice
	if err := json.Unmarshal(t.Payload(), &notice); err != nil {
		return fmt.Errorf("decode notice: %w", asynq.SkipRetry)
	}
	if notice.SocietyID <= 0 {
		return fmt.Errorf("notice without society: %w", asynq.SkipRetry)
	}
	tracker.Lag(notice.At)

	logger := j.logger().With(
		slog.Int64("society_id", notice.SocietyID),
		slog.String("action", string(notice.Action)),
		slog.Int("roles", len(notice.RoleIDs)),
	)
	refreshCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	count, err := j.Roles.Refresh(refreshCtx, notice.SocietyID)
	if err != nil {
		logger.Error("refresh roles cache", slog.Any("error", err))
		return err
	}
	tracker.Items(int64(count))
	logger.Info("processed bulk notice", slog.Int64("actor_id", notice.ActorID), slog.Int("records", count), slog.Duration("lag", time.Since(notice.At)))
	return nil
}

func (j *BulkNoticeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRolesBulkNotice))
	}
	return slog.Default().With(slog.String("job", TaskRolesBulkNotice))
}

func (j *BulkNoticeJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
