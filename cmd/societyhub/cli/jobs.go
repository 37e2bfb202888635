package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/societyhub/societyhub/internal/roles"
	"github.com/societyhub/societyhub/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI connects the enqueue client and inspector to the queue's Redis.
func NewJobsCLI(opt asynq.RedisClientOpt) (*JobsCLI, error) {
	client := asynq.NewClient(opt)
	inspector := asynq.NewInspector(opt)
	return &JobsCLI{client: client, inspector: inspector}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. args carries the society id for
// the roles refresh.
func (c *JobsCLI) Trigger(ctx context.Context, name string, args []string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := BuildTask(name, args, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// BuildTask prepares the task that Trigger enqueues.
func BuildTask(name string, args []string, now time.Time) (*asynq.Task, error) {
	switch name {
	case jobs.TaskSessionsPurge:
		return jobs.NewSessionsPurgeTask(0)
	case jobs.TaskRolesBulkNotice:
		if len(args) == 0 {
			return nil, errors.New("jobs cli: society id required")
		}
		societyID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || societyID <= 0 {
			return nil, fmt.Errorf("jobs cli: invalid society id %q", args[0])
		}
		return jobs.NewBulkNoticeTask(roles.BulkNotice{SocietyID: societyID, At: now})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// InspectQueues reports the depth of every queue the worker serves.
func (c *JobsCLI) InspectQueues(ctx context.Context) ([]jobs.QueueHealth, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	return jobs.Depth(c.inspector)
}
