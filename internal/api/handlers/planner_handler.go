package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/planner"
	"github.com/maheshrc27/agency-planner/internal/queue"
	"github.com/maheshrc27/agency-planner/internal/scheduler"
	"github.com/maheshrc27/agency-planner/internal/service"
	"github.com/maheshrc27/agency-planner/internal/transfer"
)

type PlannerHandler struct {
	ws       queue.Workspaces
	accounts service.AccountDirectory
}

func NewPlannerHandler(ws queue.Workspaces, accounts service.AccountDirectory) *PlannerHandler {
	return &PlannerHandler{ws: ws, accounts: accounts}
}

func (h *PlannerHandler) workspace(c *fiber.Ctx) (*planner.Workspace, error) {
	return h.ws.Workspace(c.UserContext(), c.Params("projectID"))
}

func (h *PlannerHandler) Board(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := ws.Sync(c.UserContext()); err != nil {
		return respondError(c, err)
	}

	busy := make(map[string]string)
	for id, flag := range ws.Locks.Snapshot() {
		busy[id] = string(flag)
	}
	weeks := ws.Calendar.WeeksToDisplay(c.QueryInt("offset", 0), 0)

	return c.JSON(transfer.BoardView{
		ProjectID:   ws.Project.ID,
		Timezone:    ws.Calendar.Location().String(),
		Weeks:       ws.Board.Weeks(weeks),
		Unscheduled: ws.Board.Unscheduled(),
		Busy:        busy,
		Selected:    ws.Overlay.Selected(),
	})
}

func slot(req transfer.SlotRequest) scheduler.Slot {
	return scheduler.Slot{
		WeekOffset: req.WeekOffset,
		WeekIndex:  req.WeekIndex,
		DayIndex:   req.DayIndex,
		TimeOfDay:  req.Time,
	}
}

func (h *PlannerHandler) ScheduleFromQueue(c *fiber.Ctx) error {
	var req transfer.SlotRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ws, err := h.workspace(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := ws.Scheduler.ScheduleFromQueue(c.UserContext(), req.PostID, slot(req))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *PlannerHandler) MovePost(c *fiber.Ctx) error {
	var req transfer.SlotRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ws, err := h.workspace(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := ws.Scheduler.MoveScheduledPost(c.UserContext(), req.PostID, slot(req))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// postAction runs fn for the post named in the request body.
func (h *PlannerHandler) postAction(c *fiber.Ctx, fn func(ctx context.Context, ws *planner.Workspace, postID string) (any, error)) error {
	var req transfer.PostRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ws, err := h.workspace(c)
	if err != nil {
		return respondError(c, err)
	}

	out, err := fn(c.UserContext(), ws, req.PostID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

func (h *PlannerHandler) Unschedule(c *fiber.Ctx) error {
	return h.postAction(c, func(ctx context.Context, ws *planner.Workspace, postID string) (any, error) {
		return ws.Scheduler.Unschedule(ctx, postID)
	})
}

func (h *PlannerHandler) AddToQueue(c *fiber.Ctx) error {
	return h.postAction(c, func(ctx context.Context, ws *planner.Workspace, postID string) (any, error) {
		return ws.Lifecycle.AddToQueue(ctx, postID)
	})
}

func (h *PlannerHandler) Archive(c *fiber.Ctx) error {
	return h.postAction(c, func(ctx context.Context, ws *planner.Workspace, postID string) (any, error) {
		if err := ws.Lifecycle.Archive(ctx, postID); err != nil {
			return nil, err
		}
		return fiber.Map{"message": "Post archived"}, nil
	})
}

func (h *PlannerHandler) EditCaption(c *fiber.Ctx) error {
	var req transfer.CaptionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ws, err := h.workspace(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := ws.Lifecycle.EditCaption(c.UserContext(), req.PostID, req.Caption, GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *PlannerHandler) ListAccounts(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return respondError(c, err)
	}

	accounts, err := h.accounts.List(c.UserContext(), ws.Project.ClientID, ws.Project.ID)
	if err != nil {
		return respondError(c, apperr.Collaborator("account directory", err))
	}
	return c.JSON(accounts)
}
