package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/agency-planner/internal/models"
)

type ApprovalSessionRepository interface {
	Create(ctx context.Context, s *models.ApprovalSession) error
	GetByToken(ctx context.Context, token string) (*models.ApprovalSession, error)
	RemovePost(ctx context.Context, postID string) (int64, error)
	DisableExpired(ctx context.Context, now time.Time) (int64, error)
}

type approvalSessionRepository struct {
	db *sql.DB
}

func NewApprovalSessionRepository(db *sql.DB) ApprovalSessionRepository {
	return &approvalSessionRepository{db: db}
}

func (r *approvalSessionRepository) Create(ctx context.Context, s *models.ApprovalSession) error {
	query := `
		INSERT INTO approval_sessions (id, project_id, client_id, selected_post_ids, token, expires_at, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.ProjectID, s.ClientID,
		pq.Array(s.SelectedPostIDs), s.Token, s.ExpiresAt, s.Enabled).Scan(&s.CreatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *approvalSessionRepository) GetByToken(ctx context.Context, token string) (*models.ApprovalSession, error) {
	query := `SELECT id, project_id, client_id, selected_post_ids, token, expires_at, enabled, created_at
		FROM approval_sessions WHERE token = $1`

	var s models.ApprovalSession
	var selected pq.StringArray
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.ID, &s.ProjectID, &s.ClientID, &selected,
		&s.Token, &s.ExpiresAt, &s.Enabled, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	s.SelectedPostIDs = []string(selected)
	return &s, nil
}

// RemovePost drops postID from every session that still selects it.
func (r *approvalSessionRepository) RemovePost(ctx context.Context, postID string) (int64, error) {
	query := `
		UPDATE approval_sessions
		SET selected_post_ids = array_remove(selected_post_ids, $1)
		WHERE $1 = ANY(selected_post_ids)
	`
	result, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}

func (r *approvalSessionRepository) DisableExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE approval_sessions SET enabled = FALSE WHERE enabled AND expires_at <= $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}
