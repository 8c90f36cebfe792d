package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/testutil"
	"github.com/maheshrc27/agency-planner/internal/transfer"
)

type recordedNotice struct {
	postID   string
	status   models.ApprovalStatus
	comments string
}

type fakeNotifier struct {
	notices []recordedNotice
}

func (n *fakeNotifier) ApprovalFeedback(_ context.Context, post models.Post, status models.ApprovalStatus, comments string) error {
	n.notices = append(n.notices, recordedNotice{postID: post.ID, status: status, comments: comments})
	return nil
}

type approvalFixture struct {
	svc      ApprovalService
	posts    *testutil.Posts
	sessions *testutil.Sessions
	notifier *fakeNotifier
	now      time.Time
}

func scheduledPost(id, date, tod string) models.Post {
	return models.Post{
		ID: id, ProjectID: "p1", ClientID: "c1", PostType: models.PostTypeImage,
		Caption: "caption " + id, State: models.PostStateScheduled,
		ScheduledDate: date, ScheduledTime: tod, ApprovalStatus: models.ApprovalPending,
	}
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

	unscheduled := models.Post{ID: "p5", ProjectID: "p1", ClientID: "c1", State: models.PostStateUnscheduled}
	other := scheduledPost("x1", "2026-10-14", "12:00:00")
	other.ProjectID = "p2"

	posts := testutil.NewPosts(
		scheduledPost("p-old", "2026-10-05", "12:00:00"),
		scheduledPost("p1", "2026-10-14", "15:00:00"),
		scheduledPost("p2", "2026-10-13", "09:00:00"),
		scheduledPost("p3", "2026-10-20", "12:00:00"),
		scheduledPost("p4", "2026-10-15", "12:00:00"),
		unscheduled,
		other,
	)
	sessions := testutil.NewSessions(
		models.ApprovalSession{ID: "s1", ProjectID: "p1", ClientID: "c1", Token: "tok", Enabled: true,
			ExpiresAt: now.Add(24 * time.Hour), SelectedPostIDs: []string{"p-old", "p1", "p2", "p3", "p5", "x1"}},
		models.ApprovalSession{ID: "s2", ProjectID: "p1", ClientID: "c1", Token: "off", Enabled: false,
			ExpiresAt: now.Add(24 * time.Hour), SelectedPostIDs: []string{"p1"}},
		models.ApprovalSession{ID: "s3", ProjectID: "p1", ClientID: "c1", Token: "old", Enabled: true,
			ExpiresAt: now.Add(-time.Minute), SelectedPostIDs: []string{"p1"}},
	)
	projects := testutil.NewProjects(models.Client{ID: "c1", Name: "Acme"},
		models.Project{ID: "p1", ClientID: "c1", Name: "Autumn", Timezone: "Europe/London"},
		models.Project{ID: "p2", ClientID: "c1", Name: "Brand"},
	)
	notifier := &fakeNotifier{}

	svc := NewApprovalService(sessions, posts, projects, notifier, cache.New(nil), ApprovalOptions{
		FrontendURL: "https://app.example.com/",
		SessionTTL:  72 * time.Hour,
		Now:         func() time.Time { return now },
	})
	return &approvalFixture{svc: svc, posts: posts, sessions: sessions, notifier: notifier, now: now}
}

func TestCreateSession(t *testing.T) {
	f := newApprovalFixture(t)

	_, err := f.svc.CreateSession(context.Background(), "p1", "c1", nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	share, err := f.svc.CreateSession(context.Background(), "p1", "c1", []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Len(t, share.Session.Token, 32)
	assert.True(t, share.Session.Enabled)
	assert.Equal(t, f.now.Add(72*time.Hour), share.Session.ExpiresAt)
	assert.Equal(t, "https://app.example.com/approval?token="+share.Session.Token, share.ShareURL)

	stored, err := f.sessions.GetByToken(context.Background(), share.Session.Token)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"p1", "p2"}, stored.SelectedPostIDs)
}

func TestPortalGroupsCurrentAndFutureWeeks(t *testing.T) {
	f := newApprovalFixture(t)

	view, err := f.svc.Portal(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Acme", view.Client.Name)
	assert.Len(t, view.Projects, 2)

	require.Len(t, view.Weeks, 2)
	assert.Equal(t, "2026-10-12", view.Weeks[0].WeekStart)
	assert.Equal(t, "W/C 12th October", view.Weeks[0].Label)
	require.Len(t, view.Weeks[0].Posts, 2)
	assert.Equal(t, "p2", view.Weeks[0].Posts[0].ID)
	assert.Equal(t, "p1", view.Weeks[0].Posts[1].ID)

	assert.Equal(t, "2026-10-19", view.Weeks[1].WeekStart)
	require.Len(t, view.Weeks[1].Posts, 1)
	assert.Equal(t, "p3", view.Weeks[1].Posts[0].ID)
}

func TestPortalRejectsUnusableTokens(t *testing.T) {
	f := newApprovalFixture(t)
	for _, token := range []string{"", "missing", "off", "old"} {
		_, err := f.svc.Portal(context.Background(), token)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization), token)
	}
}

func TestSubmitNeedsAttentionThenApprove(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	post, err := f.svc.Submit(ctx, transfer.ApprovalSubmission{
		Token: "tok", PostID: "p1", PostType: "image",
		ApprovalStatus: "needs_attention", ClientComments: "Use the blue logo",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalNeedsAttention, post.ApprovalStatus)
	assert.True(t, post.NeedsAttention)
	assert.Equal(t, "Use the blue logo", post.ClientFeedback)

	stored, _ := f.posts.Stored("p1")
	assert.True(t, stored.NeedsAttention)
	assert.Equal(t, "Use the blue logo", stored.ClientFeedback)
	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, models.ApprovalNeedsAttention, f.notifier.notices[0].status)

	post, err = f.svc.Submit(ctx, transfer.ApprovalSubmission{
		Token: "tok", PostID: "p1", PostType: "image", ApprovalStatus: "approved",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, post.ApprovalStatus)
	assert.False(t, post.NeedsAttention)
	assert.Empty(t, post.ClientFeedback)
	assert.Len(t, f.notifier.notices, 1)
}

func TestSubmitEditsCaptionFirst(t *testing.T) {
	f := newApprovalFixture(t)

	post, err := f.svc.Submit(context.Background(), transfer.ApprovalSubmission{
		Token: "tok", PostID: "p2", PostType: "image",
		ApprovalStatus: "rejected", EditedCaption: "New caption",
	})
	require.NoError(t, err)
	assert.Equal(t, "New caption", post.Caption)
	assert.Equal(t, 1, post.EditCount)
	assert.Equal(t, models.ApprovalRejected, post.ApprovalStatus)
	assert.Equal(t, []string{"p2", "p2"}, f.posts.Updates)
	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, models.ApprovalRejected, f.notifier.notices[0].status)
}

func TestSubmitValidation(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	cases := map[string]transfer.ApprovalSubmission{
		"missing post type":       {Token: "tok", PostID: "p1", ApprovalStatus: "approved"},
		"unknown status":          {Token: "tok", PostID: "p1", PostType: "image", ApprovalStatus: "maybe"},
		"missing token":           {PostID: "p1", PostType: "image", ApprovalStatus: "approved"},
		"changes without comment": {Token: "tok", PostID: "p1", PostType: "image", ApprovalStatus: "needs_attention"},
		"wrong post type":         {Token: "tok", PostID: "p1", PostType: "video", ApprovalStatus: "approved"},
		"post from other project": {Token: "tok", PostID: "x1", PostType: "image", ApprovalStatus: "approved"},
		"unknown post":            {Token: "tok", PostID: "nope", PostType: "image", ApprovalStatus: "approved"},
	}
	for name, sub := range cases {
		_, err := f.svc.Submit(ctx, sub)
		assert.True(t, apperr.Is(err, apperr.KindValidation), name)
	}
	assert.Empty(t, f.posts.Updates)

	_, err := f.svc.Submit(ctx, transfer.ApprovalSubmission{Token: "off", PostID: "p1", PostType: "image", ApprovalStatus: "approved"})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestSubmitRejectsPostOutsideSelection(t *testing.T) {
	f := newApprovalFixture(t)

	_, err := f.svc.Submit(context.Background(), transfer.ApprovalSubmission{
		Token: "tok", PostID: "p4", PostType: "image", ApprovalStatus: "approved",
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, f.posts.Updates)
	assert.Empty(t, f.notifier.notices)

	stored, _ := f.posts.Stored("p4")
	assert.Equal(t, models.ApprovalPending, stored.ApprovalStatus)
}

func TestSubmitChecksTokenBeforeBody(t *testing.T) {
	f := newApprovalFixture(t)

	for _, token := range []string{"missing", "off", "old"} {
		_, err := f.svc.Submit(context.Background(), transfer.ApprovalSubmission{
			Token: token, PostID: "p1", PostType: "image", ApprovalStatus: "needs_attention",
		})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization), token)
	}
	assert.Empty(t, f.posts.Updates)
}

func TestPurgePost(t *testing.T) {
	f := newApprovalFixture(t)
	require.NoError(t, f.svc.PurgePost(context.Background(), "p1"))

	for _, s := range f.sessions.All() {
		assert.NotContains(t, s.SelectedPostIDs, "p1", s.ID)
	}
}
