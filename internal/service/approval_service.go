package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/calendar"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/repository"
	"github.com/maheshrc27/agency-planner/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	tokenLength   = 32
	clientEditor  = "client"
	portalPath    = "/approval"
	defaultZoneID = "UTC"
)

// ApprovalService owns approval sessions: creating them for the agency and
// serving the token-scoped portal where clients record decisions.
type ApprovalService interface {
	CreateSession(ctx context.Context, projectID, clientID string, postIDs []string) (*transfer.ShareSession, error)
	Portal(ctx context.Context, token string) (*transfer.PortalView, error)
	Submit(ctx context.Context, sub transfer.ApprovalSubmission) (*models.Post, error)
	PurgePost(ctx context.Context, postID string) error
}

type ApprovalOptions struct {
	FrontendURL     string
	SessionTTL      time.Duration
	DefaultTimezone string
	Now             func() time.Time
}

type approvalService struct {
	sessions repository.ApprovalSessionRepository
	posts    repository.PostRepository
	projects repository.ProjectRepository
	notifier Notifier
	cache    *cache.FetchCache
	validate *validator.Validate
	opts     ApprovalOptions
}

func NewApprovalService(
	sessions repository.ApprovalSessionRepository,
	posts repository.PostRepository,
	projects repository.ProjectRepository,
	notifier Notifier,
	fc *cache.FetchCache,
	opts ApprovalOptions) ApprovalService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = defaultZoneID
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &approvalService{
		sessions: sessions,
		posts:    posts,
		projects: projects,
		notifier: notifier,
		cache:    fc,
		validate: newValidator(),
		opts:     opts,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *approvalService) shareURL(token string) string {
	return strings.TrimRight(s.opts.FrontendURL, "/") + portalPath + "?token=" + url.QueryEscape(token)
}

func (s *approvalService) CreateSession(ctx context.Context, projectID, clientID string, postIDs []string) (*transfer.ShareSession, error) {
	if len(postIDs) == 0 {
		return nil, apperr.Validation("select at least one post to share")
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	token, err := gonanoid.New(tokenLength)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	session := &models.ApprovalSession{
		ID:              id,
		ProjectID:       projectID,
		ClientID:        clientID,
		SelectedPostIDs: postIDs,
		Token:           token,
		ExpiresAt:       s.opts.Now().Add(s.opts.SessionTTL),
		Enabled:         true,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating approval session: %w", err)
	}

	return &transfer.ShareSession{Session: session, ShareURL: s.shareURL(token)}, nil
}

func (s *approvalService) session(ctx context.Context, token string) (*models.ApprovalSession, error) {
	if token == "" {
		return nil, apperr.Unauthorized("missing approval token")
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Usable(s.opts.Now()) {
		return nil, apperr.Unauthorized("invalid or disabled approval token")
	}
	return session, nil
}

func (s *approvalService) location(project *models.Project) *time.Location {
	zone := s.opts.DefaultTimezone
	if project != nil && project.Timezone != "" {
		zone = project.Timezone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		slog.Warn("unknown project timezone, using UTC", "timezone", zone, "error", err)
		return time.UTC
	}
	return loc
}

// Portal returns the client's view of a session: the selected posts from
// the current week onward, grouped by Monday-anchored week.
func (s *approvalService) Portal(ctx context.Context, token string) (*transfer.PortalView, error) {
	session, err := s.session(ctx, token)
	if err != nil {
		return nil, err
	}

	client, err := s.projects.GetClient(ctx, session.ClientID)
	if err != nil {
		return nil, err
	}
	projects, err := s.projects.ListByClientID(ctx, session.ClientID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetProject(ctx, session.ProjectID)
	if err != nil {
		return nil, err
	}

	cal := calendar.New(s.location(project), s.opts.Now)
	from := cal.CurrentWeekStart()

	posts, err := s.posts.ListScheduledFrom(ctx, session.ProjectID, calendar.DateKey(from))
	if err != nil {
		return nil, err
	}

	return &transfer.PortalView{
		Client:   client,
		Projects: projects,
		Weeks:    groupWeeks(cal, session, posts, from),
	}, nil
}

func groupWeeks(cal *calendar.Calendar, session *models.ApprovalSession, posts []*models.Post, from time.Time) []transfer.PortalWeek {
	byWeek := make(map[string]*transfer.PortalWeek)
	var keys []string
	for _, p := range posts {
		if !session.Includes(p.ID) || !p.IsScheduled() {
			continue
		}
		day, err := cal.ParseDate(p.ScheduledDate)
		if err != nil {
			continue
		}
		start := calendar.WeekStart(day)
		if start.Before(from) {
			continue
		}
		key := calendar.DateKey(start)
		week, ok := byWeek[key]
		if !ok {
			week = &transfer.PortalWeek{WeekStart: key, Label: calendar.FormatWeekCommencing(start)}
			byWeek[key] = week
			keys = append(keys, key)
		}
		week.Posts = append(week.Posts, p.Clone())
	}

	sort.Strings(keys)
	weeks := make([]transfer.PortalWeek, 0, len(keys))
	for _, key := range keys {
		week := byWeek[key]
		sort.SliceStable(week.Posts, func(i, j int) bool {
			a, b := week.Posts[i], week.Posts[j]
			if a.ScheduledDate != b.ScheduledDate {
				return a.ScheduledDate < b.ScheduledDate
			}
			return a.ScheduledTime < b.ScheduledTime
		})
		weeks = append(weeks, *week)
	}
	return weeks
}

func (s *approvalService) Submit(ctx context.Context, sub transfer.ApprovalSubmission) (*models.Post, error) {
	if err := s.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, apperr.Validation("missing or invalid field %s", verrs[0].Field())
		}
		return nil, apperr.Validation("invalid submission")
	}

	session, err := s.session(ctx, sub.Token)
	if err != nil {
		return nil, err
	}

	status := models.ApprovalStatus(sub.ApprovalStatus)
	comments := strings.TrimSpace(sub.ClientComments)
	if status == models.ApprovalNeedsAttention && comments == "" {
		return nil, apperr.Validation("client_comments are required when requesting changes")
	}

	post, err := s.posts.GetByID(ctx, sub.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.ProjectID != session.ProjectID || !session.Includes(post.ID) {
		return nil, apperr.Validation("post %s is not part of this approval session", sub.PostID)
	}
	if post.PostType != "" && post.PostType != sub.PostType {
		return nil, apperr.Validation("post_type %q does not match post", sub.PostType)
	}

	if caption := strings.TrimSpace(sub.EditedCaption); caption != "" {
		edit := models.PostPatch{
			Caption:      models.Ptr(sub.EditedCaption),
			EditCount:    models.Ptr(post.EditCount + 1),
			LastEditedBy: models.Ptr(clientEditor),
		}
		if err := s.posts.Update(ctx, post.ID, edit); err != nil {
			return nil, fmt.Errorf("error updating caption: %w", err)
		}
		edit.Apply(post)
	}

	decision := models.PostPatch{ApprovalStatus: models.Ptr(status)}
	if status == models.ApprovalNeedsAttention {
		decision.NeedsAttention = models.Ptr(true)
		decision.ClientFeedback = models.Ptr(sub.ClientComments)
	} else {
		decision.NeedsAttention = models.Ptr(false)
		// An empty string is stored as NULL.
		decision.ClientFeedback = models.Ptr(sub.ClientComments)
	}
	if err := s.posts.Update(ctx, post.ID, decision); err != nil {
		return nil, fmt.Errorf("error recording approval: %w", err)
	}
	decision.Apply(post)

	if s.cache != nil {
		s.cache.Invalidate(cache.PostsKey(post.ProjectID))
	}

	if err := s.notifier.ApprovalFeedback(ctx, *post, status, comments); err != nil {
		slog.Warn("approval notification failed", "post_id", post.ID, "error", err)
	}

	return post, nil
}

func (s *approvalService) PurgePost(ctx context.Context, postID string) error {
	if _, err := s.sessions.RemovePost(ctx, postID); err != nil {
		return fmt.Errorf("error purging post from approval sessions: %w", err)
	}
	return nil
}
