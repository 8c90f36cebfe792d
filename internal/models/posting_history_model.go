package models

import "time"

const (
	StepMediaUpload     = "media_upload"
	StepRequestSchedule = "request_schedule"
	StepPersist         = "persist"
)

// PublishAttempt records the outcome of one pipeline step for a post and
// target account. A persist failure after a confirmed schedule is the row an
// operator reconciles by hand.
type PublishAttempt struct {
	ID             int64     `db:"id" json:"id"`
	PostID         string    `db:"post_id" json:"post_id"`
	AccountID      string    `db:"account_id" json:"account_id"`
	Step           string    `db:"step" json:"step"`
	MediaRef       string    `db:"media_ref" json:"media_ref,omitempty"`
	ExternalPostID string    `db:"external_post_id" json:"external_post_id,omitempty"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
