package queue

import (
	"context"

	"github.com/maheshrc27/agency-planner/internal/planner"
)

type Workspaces interface {
	Workspace(ctx context.Context, projectID string) (*planner.Workspace, error)
}

type Queue struct {
	ws Workspaces
}

func NewQueue(ws Workspaces) *Queue {
	return &Queue{ws: ws}
}

const TaskTypeBulkSchedule = "bulk:schedule"

// BulkSchedulePayload carries the batch and any caption edits the user had
// not saved when the batch was submitted.
type BulkSchedulePayload struct {
	ProjectID    string            `json:"project_id"`
	PostIDs      []string          `json:"post_ids"`
	AccountID    string            `json:"account_id"`
	CaptionEdits map[string]string `json:"caption_edits,omitempty"`
}
