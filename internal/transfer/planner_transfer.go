package transfer

import "github.com/maheshrc27/agency-planner/internal/models"

type SlotRequest struct {
	PostID     string `json:"post_id" validate:"required"`
	WeekOffset int    `json:"week_offset"`
	WeekIndex  int    `json:"week_index" validate:"min=0,max=3"`
	DayIndex   int    `json:"day_index" validate:"min=0,max=6"`
	Time       string `json:"time"`
}

type PostRequest struct {
	PostID string `json:"post_id" validate:"required"`
}

type CaptionRequest struct {
	PostID  string `json:"post_id" validate:"required"`
	Caption string `json:"caption"`
}

type ShareRequest struct {
	ClientID string   `json:"client_id"`
	PostIDs  []string `json:"post_ids"`
}

type PublishRequest struct {
	PostID    string  `json:"post_id" validate:"required"`
	AccountID string  `json:"account_id" validate:"required"`
	Caption   *string `json:"caption"`
}

type BulkDeleteRequest struct {
	PostIDs []string `json:"post_ids"`
}

type BulkScheduleRequest struct {
	PostIDs      []string          `json:"post_ids"`
	AccountID    string            `json:"account_id" validate:"required"`
	CaptionEdits map[string]string `json:"caption_edits"`
}

type BoardView struct {
	ProjectID   string              `json:"project_id"`
	Timezone    string              `json:"timezone"`
	Weeks       []models.WeekBucket `json:"weeks"`
	Unscheduled []models.Post       `json:"unscheduled"`
	Busy        map[string]string   `json:"busy"`
	Selected    []string            `json:"selected"`
}
