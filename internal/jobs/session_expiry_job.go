package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/agency-planner/internal/repository"
)

type SessionExpiryJob struct {
	sr  repository.ApprovalSessionRepository
	now func() time.Time
}

func NewSessionExpiryJob(sr repository.ApprovalSessionRepository, now func() time.Time) *SessionExpiryJob {
	if now == nil {
		now = time.Now
	}
	return &SessionExpiryJob{sr: sr, now: now}
}

// DisableExpired turns off approval links past their expiry so the portal
// stops serving them.
func (c *SessionExpiryJob) DisableExpired() {
	n, err := c.sr.DisableExpired(context.Background(), c.now())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if n > 0 {
		slog.Info("approval sessions expired", "sessions", n)
	}
}
