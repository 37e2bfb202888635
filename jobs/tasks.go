package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/societyhub/societyhub/internal/roles"
)

const (
	// QueueDefault carries work triggered by staff actions.
	QueueDefault = "default"
	// QueueMaintenance carries scheduled housekeeping.
	QueueMaintenance = "maintenance"
	// TaskRolesBulkNotice follows a completed bulk role action.
	TaskRolesBulkNotice = "roles:bulk_notice"
	// TaskSessionsPurge removes expired login sessions.
	TaskSessionsPurge = "sessions:purge"
)

// SessionsPurgePayload configures a purge run.
type SessionsPurgePayload struct {
	// Grace keeps sessions that expired less than Grace ago.
	Grace time.Duration `json:"grace"`
}

// Queues lists every queue the worker serves, highest weight first.
var Queues = []string{QueueDefault, QueueMaintenance}

// NewBulkNoticeTask constructs a bulk notice task.
func NewBulkNoticeTask(notice roles.BulkNotice) (*asynq.Task, error) {
	data, err := json.Marshal(notice)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRolesBulkNotice, data,
		asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Timeout(time.Minute)), nil
}

// NewSessionsPurgeTask constructs a purge task.
func NewSessionsPurgeTask(grace time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(SessionsPurgePayload{Grace: grace})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurge, data,
		asynq.Queue(QueueMaintenance), asynq.MaxRetry(3), asynq.Unique(30*time.Minute)), nil
}
