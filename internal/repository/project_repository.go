package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/agency-planner/internal/models"
)

type ProjectRepository interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListByClientID(ctx context.Context, clientID string) ([]*models.Project, error)
	GetClient(ctx context.Context, id string) (*models.Client, error)
}

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT id, client_id, name, timezone, created_at FROM projects WHERE id = $1`

	var p models.Project
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.ClientID, &p.Name, &p.Timezone, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) ListByClientID(ctx context.Context, clientID string) ([]*models.Project, error) {
	query := `SELECT id, client_id, name, timezone, created_at FROM projects WHERE client_id = $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Name, &p.Timezone, &p.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *projectRepository) GetClient(ctx context.Context, id string) (*models.Client, error) {
	query := `SELECT id, name, created_at FROM clients WHERE id = $1`

	var c models.Client
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &c, nil
}
