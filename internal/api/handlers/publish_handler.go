package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/publish"
	"github.com/maheshrc27/agency-planner/internal/queue"
	"github.com/maheshrc27/agency-planner/internal/transfer"
)

// TaskInspector is satisfied by *asynq.Inspector.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

type PublishHandler struct {
	ws        queue.Workspaces
	client    queue.Enqueuer
	inspector TaskInspector
}

func NewPublishHandler(ws queue.Workspaces, client queue.Enqueuer, inspector TaskInspector) *PublishHandler {
	return &PublishHandler{ws: ws, client: client, inspector: inspector}
}

func (h *PublishHandler) Publish(c *fiber.Ctx) error {
	var req transfer.PublishRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ws, err := h.ws.Workspace(c.UserContext(), c.Params("projectID"))
	if err != nil {
		return respondError(c, err)
	}

	result, err := ws.Pipeline.Run(c.UserContext(), publish.Request{PostID: req.PostID, AccountID: req.AccountID, Caption: req.Caption})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *PublishHandler) BulkDelete(c *fiber.Ctx) error {
	var req transfer.BulkDeleteRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ws, err := h.ws.Workspace(c.UserContext(), c.Params("projectID"))
	if err != nil {
		return respondError(c, err)
	}

	summary, err := ws.Bulk.Delete(c.UserContext(), req.PostIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// BulkSchedule checks the batch and queues it. The summary is read back
// through TaskStatus.
func (h *PublishHandler) BulkSchedule(c *fiber.Ctx) error {
	var req transfer.BulkScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if len(req.PostIDs) == 0 {
		return respondError(c, apperr.Validation("select at least one post to schedule"))
	}
	ws, err := h.ws.Workspace(c.UserContext(), c.Params("projectID"))
	if err != nil {
		return respondError(c, err)
	}

	var problems []string
	for _, id := range req.PostIDs {
		var edit *string
		if caption, ok := req.CaptionEdits[id]; ok {
			edit = &caption
		}
		if _, err := ws.Pipeline.Check(id, edit); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return respondError(c, apperr.Validation("batch rejected: %s", strings.Join(problems, "; ")))
	}

	info, err := queue.EnqueueBulkSchedule(h.client, queue.BulkSchedulePayload{
		ProjectID:    ws.Project.ID,
		PostIDs:      req.PostIDs,
		AccountID:    req.AccountID,
		CaptionEdits: req.CaptionEdits,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error queueing bulk schedule",
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"task_id": info.ID})
}

func (h *PublishHandler) TaskStatus(c *fiber.Ctx) error {
	info, err := h.inspector.GetTaskInfo(c.Query("queue", "default"), c.Params("id"))
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return respondError(c, apperr.NotFound("task", c.Params("id")))
	}
	if err != nil {
		return respondError(c, err)
	}

	body := fiber.Map{"id": info.ID, "state": info.State.String()}
	if info.LastErr != "" {
		body["error"] = info.LastErr
	}
	if len(info.Result) > 0 {
		body["result"] = json.RawMessage(info.Result)
	}
	return c.JSON(body)
}
