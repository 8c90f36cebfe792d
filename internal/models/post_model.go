package models

import (
	"slices"
	"strings"
	"time"
)

type PostState string

const (
	PostStateDraft       PostState = "draft"
	PostStateUnscheduled PostState = "unscheduled"
	PostStateScheduled   PostState = "scheduled"
	PostStatePublished   PostState = "published"
	PostStateArchived    PostState = "archived"
	PostStateDeleted     PostState = "deleted"
)

type ApprovalStatus string

const (
	ApprovalPending        ApprovalStatus = "pending"
	ApprovalApproved       ApprovalStatus = "approved"
	ApprovalRejected       ApprovalStatus = "rejected"
	ApprovalNeedsAttention ApprovalStatus = "needs_attention"
)

// LateStatus is the platform-side confirmation state, tracked separately
// from the internal lifecycle state.
type LateStatus string

const (
	LateStatusNone      LateStatus = ""
	LateStatusScheduled LateStatus = "scheduled"
	LateStatusPublished LateStatus = "published"
	LateStatusFailed    LateStatus = "failed"
)

const (
	PostTypeImage = "image"
	PostTypeVideo = "video"
)

type Post struct {
	ID                 string         `db:"id" json:"id"`
	ProjectID          string         `db:"project_id" json:"project_id"`
	ClientID           string         `db:"client_id" json:"client_id"`
	PostType           string         `db:"post_type" json:"post_type"`
	Caption            string         `db:"caption" json:"caption"`
	ImageRef           string         `db:"image_ref" json:"image_ref"`
	State              PostState      `db:"state" json:"state"`
	ScheduledDate      string         `db:"scheduled_date" json:"scheduled_date,omitempty"`
	ScheduledTime      string         `db:"scheduled_time" json:"scheduled_time,omitempty"`
	ApprovalStatus     ApprovalStatus `db:"approval_status" json:"approval_status"`
	ClientFeedback     string         `db:"client_feedback" json:"client_feedback,omitempty"`
	NeedsAttention     bool           `db:"needs_attention" json:"needs_attention"`
	PlatformsScheduled []string       `db:"platforms_scheduled" json:"platforms_scheduled"`
	ExternalPostID     string         `db:"external_post_id" json:"external_post_id,omitempty"`
	LateStatus         LateStatus     `db:"late_status" json:"late_status,omitempty"`
	EditCount          int            `db:"edit_count" json:"edit_count"`
	LastEditedBy       string         `db:"last_edited_by" json:"last_edited_by,omitempty"`
	NeedsReapproval    bool           `db:"needs_reapproval" json:"needs_reapproval"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Clone returns a copy that shares no slices with p.
func (p Post) Clone() Post {
	p.PlatformsScheduled = slices.Clone(p.PlatformsScheduled)
	return p
}

func (p Post) IsScheduled() bool {
	return p.State == PostStateScheduled || p.State == PostStatePublished
}

func (p Post) HasCaption() bool {
	return strings.TrimSpace(p.Caption) != ""
}

func (p Post) ScheduledOnPlatform(platform string) bool {
	return slices.Contains(p.PlatformsScheduled, platform)
}

// PostPatch lists the columns of a partial update. Nil fields are left
// untouched.
type PostPatch struct {
	Caption            *string
	State              *PostState
	ScheduledDate      *string
	ScheduledTime      *string
	ApprovalStatus     *ApprovalStatus
	ClientFeedback     *string
	NeedsAttention     *bool
	PlatformsScheduled []string
	ExternalPostID     *string
	LateStatus         *LateStatus
	EditCount          *int
	LastEditedBy       *string
	NeedsReapproval    *bool
}

func (pp PostPatch) IsEmpty() bool {
	return pp.Caption == nil && pp.State == nil && pp.ScheduledDate == nil && pp.ScheduledTime == nil &&
		pp.ApprovalStatus == nil && pp.ClientFeedback == nil && pp.NeedsAttention == nil &&
		pp.PlatformsScheduled == nil && pp.ExternalPostID == nil && pp.LateStatus == nil &&
		pp.EditCount == nil && pp.LastEditedBy == nil && pp.NeedsReapproval == nil
}

// Apply writes the non-nil fields of pp onto p.
func (pp PostPatch) Apply(p *Post) {
	if pp.Caption != nil {
		p.Caption = *pp.Caption
	}
	if pp.State != nil {
		p.State = *pp.State
	}
	if pp.ScheduledDate != nil {
		p.ScheduledDate = *pp.ScheduledDate
	}
	if pp.ScheduledTime != nil {
		p.ScheduledTime = *pp.ScheduledTime
	}
	if pp.ApprovalStatus != nil {
		p.ApprovalStatus = *pp.ApprovalStatus
	}
	if pp.ClientFeedback != nil {
		p.ClientFeedback = *pp.ClientFeedback
	}
	if pp.NeedsAttention != nil {
		p.NeedsAttention = *pp.NeedsAttention
	}
	if pp.PlatformsScheduled != nil {
		p.PlatformsScheduled = slices.Clone(pp.PlatformsScheduled)
	}
	if pp.ExternalPostID != nil {
		p.ExternalPostID = *pp.ExternalPostID
	}
	if pp.LateStatus != nil {
		p.LateStatus = *pp.LateStatus
	}
	if pp.EditCount != nil {
		p.EditCount = *pp.EditCount
	}
	if pp.LastEditedBy != nil {
		p.LastEditedBy = *pp.LastEditedBy
	}
	if pp.NeedsReapproval != nil {
		p.NeedsReapproval = *pp.NeedsReapproval
	}
}

// Ptr is a helper for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// WeekBucket is derived for display and never persisted.
type WeekBucket struct {
	WeekStart string `json:"week_start"`
	Label     string `json:"label"`
	Posts     []Post `json:"posts"`
}
