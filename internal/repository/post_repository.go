package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/models"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (string, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListByProjectID(ctx context.Context, projectID string, opts ListOptions) ([]*models.Post, error)
	ListScheduledFrom(ctx context.Context, projectID, fromDate string) ([]*models.Post, error)
	ListByLateStatus(ctx context.Context, status models.LateStatus, limit int) ([]*models.Post, error)
	Update(ctx context.Context, id string, patch models.PostPatch) error
	Remove(ctx context.Context, id string) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, project_id, client_id, post_type, caption, image_ref, state,
	COALESCE(to_char(scheduled_date, 'YYYY-MM-DD'), ''),
	COALESCE(to_char(scheduled_time, 'HH24:MI:SS'), ''),
	approval_status, COALESCE(client_feedback, ''), needs_attention, platforms_scheduled,
	COALESCE(external_post_id, ''), late_status, edit_count, COALESCE(last_edited_by, ''),
	needs_reapproval, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	var p models.Post
	var platforms pq.StringArray
	err := row.Scan(&p.ID, &p.ProjectID, &p.ClientID, &p.PostType, &p.Caption, &p.ImageRef, &p.State,
		&p.ScheduledDate, &p.ScheduledTime,
		&p.ApprovalStatus, &p.ClientFeedback, &p.NeedsAttention, &platforms,
		&p.ExternalPostID, &p.LateStatus, &p.EditCount, &p.LastEditedBy,
		&p.NeedsReapproval, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.PlatformsScheduled = []string(platforms)
	return &p, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (string, error) {
	query := `
		INSERT INTO posts (id, project_id, client_id, post_type, caption, image_ref, state,
			scheduled_date, scheduled_time, approval_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.State == "" {
		post.State = models.PostStateDraft
	}
	if post.ApprovalStatus == "" {
		post.ApprovalStatus = models.ApprovalPending
	}
	args := []any{post.ID, post.ProjectID, post.ClientID, post.PostType, post.Caption, post.ImageRef, post.State,
		nullIfEmpty(post.ScheduledDate), nullIfEmpty(post.ScheduledTime), post.ApprovalStatus}

	var id string
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListByProjectID(ctx context.Context, projectID string, opts ListOptions) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE project_id = $1 AND state NOT IN ('archived', 'deleted')
		ORDER BY scheduled_date NULLS LAST, scheduled_time NULLS LAST, created_at, id`
	args := []any{projectID}
	if opts.Limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, opts.Limit, opts.Offset)
	}
	return r.list(ctx, query, args...)
}

func (r *postRepository) ListScheduledFrom(ctx context.Context, projectID, fromDate string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE project_id = $1 AND state IN ('scheduled', 'published') AND scheduled_date >= $2
		ORDER BY scheduled_date, scheduled_time`
	return r.list(ctx, query, projectID, fromDate)
}

func (r *postRepository) ListByLateStatus(ctx context.Context, status models.LateStatus, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE late_status = $1 AND external_post_id IS NOT NULL
		ORDER BY scheduled_date, scheduled_time
		LIMIT $2`
	return r.list(ctx, query, status, limit)
}

// Update writes only the columns present in patch.
func (r *postRepository) Update(ctx context.Context, id string, patch models.PostPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Caption != nil {
		set("caption", *patch.Caption)
	}
	if patch.State != nil {
		set("state", *patch.State)
	}
	if patch.ScheduledDate != nil {
		set("scheduled_date", nullIfEmpty(*patch.ScheduledDate))
	}
	if patch.ScheduledTime != nil {
		set("scheduled_time", nullIfEmpty(*patch.ScheduledTime))
	}
	if patch.ApprovalStatus != nil {
		set("approval_status", *patch.ApprovalStatus)
	}
	if patch.ClientFeedback != nil {
		set("client_feedback", nullIfEmpty(*patch.ClientFeedback))
	}
	if patch.NeedsAttention != nil {
		set("needs_attention", *patch.NeedsAttention)
	}
	if patch.PlatformsScheduled != nil {
		set("platforms_scheduled", pq.Array(patch.PlatformsScheduled))
	}
	if patch.ExternalPostID != nil {
		set("external_post_id", nullIfEmpty(*patch.ExternalPostID))
	}
	if patch.LateStatus != nil {
		set("late_status", *patch.LateStatus)
	}
	if patch.EditCount != nil {
		set("edit_count", *patch.EditCount)
	}
	if patch.LastEditedBy != nil {
		set("last_edited_by", nullIfEmpty(*patch.LastEditedBy))
	}
	if patch.NeedsReapproval != nil {
		set("needs_reapproval", *patch.NeedsReapproval)
	}
	set("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE posts SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 0 {
		return apperr.NotFound("post", id)
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
