package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/slack-go/slack"
)

// Notifier tells the agency about client feedback that needs a response.
type Notifier interface {
	ApprovalFeedback(ctx context.Context, post models.Post, status models.ApprovalStatus, comments string) error
}

type slackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier returns a no-op notifier when token or channel is empty.
func NewSlackNotifier(token, channel string, options ...slack.Option) Notifier {
	if token == "" || channel == "" {
		return noopNotifier{}
	}
	return &slackNotifier{api: slack.New(token, options...), channel: channel}
}

func (n *slackNotifier) ApprovalFeedback(ctx context.Context, post models.Post, status models.ApprovalStatus, comments string) error {
	var headline string
	switch status {
	case models.ApprovalRejected:
		headline = "Post rejected by client"
	case models.ApprovalNeedsAttention:
		headline = "Client requested changes"
	default:
		return nil
	}

	text := fmt.Sprintf("*%s*\nPost `%s` scheduled %s %s", headline, post.ID, post.ScheduledDate, post.ScheduledTime)
	if comments != "" {
		text += fmt.Sprintf("\n> %s", comments)
	}

	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type noopNotifier struct{}

func (noopNotifier) ApprovalFeedback(context.Context, models.Post, models.ApprovalStatus, string) error {
	return nil
}
