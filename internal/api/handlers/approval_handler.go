package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/agency-planner/internal/queue"
	"github.com/maheshrc27/agency-planner/internal/service"
	"github.com/maheshrc27/agency-planner/internal/transfer"
)

// ApprovalHandler serves the agency's selection overlay and the public
// client portal.
type ApprovalHandler struct {
	ws queue.Workspaces
	s  service.ApprovalService
}

func NewApprovalHandler(ws queue.Workspaces, service service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{ws: ws, s: service}
}

func (h *ApprovalHandler) ToggleSelection(c *fiber.Ctx) error {
	var req transfer.PostRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ws, err := h.ws.Workspace(c.UserContext(), c.Params("projectID"))
	if err != nil {
		return respondError(c, err)
	}

	selected, err := ws.Overlay.Toggle(req.PostID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": req.PostID, "selected": selected})
}

func (h *ApprovalHandler) SelectAll(c *fiber.Ctx) error {
	ws, err := h.ws.Workspace(c.UserContext(), c.Params("projectID"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": ws.Overlay.SelectAll()})
}

func (h *ApprovalHandler) ClearSelection(c *fiber.Ctx) error {
	ws, err := h.ws.Workspace(c.UserContext(), c.Params("projectID"))
	if err != nil {
		return respondError(c, err)
	}
	ws.Overlay.DeselectAll()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ApprovalHandler) Summary(c *fiber.Ctx) error {
	ws, err := h.ws.Workspace(c.UserContext(), c.Params("projectID"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"summary":         ws.Overlay.Summary(),
		"needs_attention": ws.Overlay.NeedingAttention(),
		"selected":        ws.Overlay.Selected(),
	})
}

func (h *ApprovalHandler) EditURL(c *fiber.Ctx) error {
	ws, err := h.ws.Workspace(c.UserContext(), c.Params("projectID"))
	if err != nil {
		return respondError(c, err)
	}
	url, err := ws.Overlay.EditURL(c.Params("postID"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// CreateSession shares the posts in the body, or the current selection
// when the body names none.
func (h *ApprovalHandler) CreateSession(c *fiber.Ctx) error {
	var req transfer.ShareRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ws, err := h.ws.Workspace(c.UserContext(), c.Params("projectID"))
	if err != nil {
		return respondError(c, err)
	}

	if req.ClientID == "" {
		req.ClientID = ws.Project.ClientID
	}
	if len(req.PostIDs) == 0 {
		req.PostIDs = ws.Overlay.Selected()
	}

	share, err := ws.Overlay.CreateShareSession(c.UserContext(), req.ClientID, req.PostIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(share)
}

func (h *ApprovalHandler) Portal(c *fiber.Ctx) error {
	view, err := h.s.Portal(c.UserContext(), c.Query("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

func (h *ApprovalHandler) Submit(c *fiber.Ctx) error {
	var sub transfer.ApprovalSubmission
	if err := c.BodyParser(&sub); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, err := h.s.Submit(c.UserContext(), sub)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "post": post})
}
