package transfer

import "time"

// ScheduleRequest is what the publish pipeline sends to the platform
// scheduling API for one target account.
type ScheduleRequest struct {
	Caption           string
	MediaRef          string
	ScheduledAt       time.Time
	Platform          string
	ExternalAccountID string
}

type LatePlatformTarget struct {
	Platform  string `json:"platform"`
	AccountID string `json:"accountId"`
}

type LateMediaItem struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type LateCreatePostRequest struct {
	Content      string               `json:"content"`
	MediaItems   []LateMediaItem      `json:"mediaItems"`
	ScheduledFor string               `json:"scheduledFor"`
	Timezone     string               `json:"timezone"`
	Platforms    []LatePlatformTarget `json:"platforms"`
}

type LatePost struct {
	ID     string `json:"_id"`
	Status string `json:"status"`
}

type LatePostResponse struct {
	Post LatePost `json:"post"`
}

type LateMediaResponse struct {
	Files []struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	} `json:"files"`
}

type LateErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
