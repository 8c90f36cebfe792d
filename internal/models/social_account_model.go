package models

import (
	"time"
)

const (
	AccountStatusActive       = "active"
	AccountStatusDisconnected = "disconnected"
)

type SocialAccount struct {
	ID                string    `db:"id" json:"id"`
	ClientID          string    `db:"client_id" json:"client_id"`
	ProjectID         string    `db:"project_id" json:"project_id"`
	Platform          string    `db:"platform" json:"platform"`
	Handle            string    `db:"handle" json:"handle"`
	ExternalAccountID string    `db:"external_account_id" json:"external_account_id"`
	Status            string    `db:"status" json:"status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

type Client struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Project struct {
	ID        string    `db:"id" json:"id"`
	ClientID  string    `db:"client_id" json:"client_id"`
	Name      string    `db:"name" json:"name"`
	Timezone  string    `db:"timezone" json:"timezone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
