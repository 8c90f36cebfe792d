package transfer

import "github.com/maheshrc27/agency-planner/internal/models"

// ApprovalSubmission is the body a client posts from the approval portal.
type ApprovalSubmission struct {
	Token          string `json:"token" validate:"required"`
	PostID         string `json:"post_id" validate:"required"`
	PostType       string `json:"post_type" validate:"required,oneof=image video"`
	ApprovalStatus string `json:"approval_status" validate:"required,oneof=approved rejected needs_attention"`
	ClientComments string `json:"client_comments"`
	EditedCaption  string `json:"edited_caption"`
}

type PortalWeek struct {
	WeekStart string        `json:"week_start"`
	Label     string        `json:"label"`
	Posts     []models.Post `json:"posts"`
}

type PortalView struct {
	Client   *models.Client    `json:"client"`
	Projects []*models.Project `json:"projects"`
	Weeks    []PortalWeek      `json:"weeks"`
}

type ShareSession struct {
	Session  *models.ApprovalSession `json:"session"`
	ShareURL string                  `json:"share_url"`
}
