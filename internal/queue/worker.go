package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/agency-planner/internal/bulk"
)

func (j *Queue) HandleBulkScheduleTask(ctx context.Context, task *asynq.Task) error {
	var payload BulkSchedulePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode bulk schedule payload: %v: %w", err, asynq.SkipRetry)
	}

	summary, err := j.BulkSchedule(ctx, payload)
	if err != nil {
		return err
	}

	if w := task.ResultWriter(); w != nil {
		result, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		if _, err := w.Write(result); err != nil {
			slog.Info(err.Error())
		}
	}
	return nil
}

// BulkSchedule syncs the project's board, then schedules the batch on it.
func (j *Queue) BulkSchedule(ctx context.Context, payload BulkSchedulePayload) (bulk.Summary, error) {
	ws, err := j.ws.Workspace(ctx, payload.ProjectID)
	if err != nil {
		return bulk.Summary{}, err
	}
	if err := ws.Sync(ctx); err != nil {
		slog.Warn("board sync failed, scheduling from local state", "project_id", payload.ProjectID, "error", err)
	}
	return ws.Bulk.Schedule(ctx, payload.PostIDs, payload.AccountID, payload.CaptionEdits)
}
