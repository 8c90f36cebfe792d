package queue

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	bulkScheduleTimeout   = 30 * time.Minute
	bulkScheduleRetention = 24 * time.Hour
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueBulkSchedule queues a bulk schedule. The task is never retried:
// items already scheduled on the platform must not be sent twice. Its
// summary is kept for a day so the caller can poll for it.
func EnqueueBulkSchedule(asynqClient Enqueuer, payload BulkSchedulePayload) (*asynq.TaskInfo, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	task := asynq.NewTask(TaskTypeBulkSchedule, taskPayload)

	info, err := asynqClient.Enqueue(task,
		asynq.MaxRetry(0),
		asynq.Timeout(bulkScheduleTimeout),
		asynq.Retention(bulkScheduleRetention))
	if err != nil {
		return nil, err
	}

	slog.Info("bulk schedule queued", "task_id", info.ID, "project_id", payload.ProjectID, "posts", len(payload.PostIDs))
	return info, nil
}
