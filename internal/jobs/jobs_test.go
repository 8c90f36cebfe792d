package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/testutil"
)

func TestLateStatusJobRecordsPlatformOutcome(t *testing.T) {
	posts := testutil.NewPosts(
		models.Post{ID: "pub", ProjectID: "p", State: models.PostStateScheduled, ExternalPostID: "ext-1", LateStatus: models.LateStatusScheduled},
		models.Post{ID: "fail", ProjectID: "p", State: models.PostStateScheduled, ExternalPostID: "ext-2", LateStatus: models.LateStatusScheduled},
		models.Post{ID: "wait", ProjectID: "p", State: models.PostStateScheduled, ExternalPostID: "ext-3", LateStatus: models.LateStatusScheduled},
		models.Post{ID: "local", ProjectID: "p", State: models.PostStateScheduled},
	)
	platform := &testutil.Platform{Statuses: map[string]models.LateStatus{
		"ext-1": models.LateStatusPublished,
		"ext-2": models.LateStatusFailed,
	}}

	changed, err := NewLateStatusJob(posts, platform, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, 3, platform.CallCount())

	pub, _ := posts.Stored("pub")
	assert.Equal(t, models.PostStatePublished, pub.State)
	assert.Equal(t, models.LateStatusPublished, pub.LateStatus)

	failed, _ := posts.Stored("fail")
	assert.Equal(t, models.PostStateScheduled, failed.State)
	assert.Equal(t, models.LateStatusFailed, failed.LateStatus)

	waiting, _ := posts.Stored("wait")
	assert.Equal(t, models.LateStatusScheduled, waiting.LateStatus)
}

func TestSessionExpiryJobDisablesPastSessions(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	sessions := testutil.NewSessions(
		models.ApprovalSession{ID: "old", Token: "t1", Enabled: true, ExpiresAt: now.Add(-time.Hour)},
		models.ApprovalSession{ID: "live", Token: "t2", Enabled: true, ExpiresAt: now.Add(time.Hour)},
	)

	NewSessionExpiryJob(sessions, func() time.Time { return now }).DisableExpired()

	old, err := sessions.GetByToken(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, old.Enabled)
	live, err := sessions.GetByToken(context.Background(), "t2")
	require.NoError(t, err)
	assert.True(t, live.Enabled)
}
