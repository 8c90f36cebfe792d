package models

import (
	"slices"
	"time"
)

type ApprovalSession struct {
	ID              string    `db:"id" json:"id"`
	ProjectID       string    `db:"project_id" json:"project_id"`
	ClientID        string    `db:"client_id" json:"client_id"`
	SelectedPostIDs []string  `db:"selected_post_ids" json:"selected_post_ids"`
	Token           string    `db:"token" json:"-"`
	ExpiresAt       time.Time `db:"expires_at" json:"expires_at"`
	Enabled         bool      `db:"enabled" json:"enabled"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

func (s *ApprovalSession) Usable(now time.Time) bool {
	return s.Enabled && now.Before(s.ExpiresAt)
}

func (s *ApprovalSession) Includes(postID string) bool {
	return slices.Contains(s.SelectedPostIDs, postID)
}
