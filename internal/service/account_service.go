package service

import (
	"context"
	"time"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/maheshrc27/agency-planner/internal/cache"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/repository"
)

// AccountDirectory lists the social accounts a project can publish to.
// Reads go through the fetch cache; accounts are read-only here.
type AccountDirectory interface {
	List(ctx context.Context, clientID, projectID string) ([]models.SocialAccount, error)
	Get(ctx context.Context, clientID, projectID, accountID string) (models.SocialAccount, error)
	Invalidate(clientID, projectID string)
}

type accountDirectory struct {
	repo  repository.SocialAccountRepository
	cache *cache.FetchCache
	ttl   time.Duration
}

func NewAccountDirectory(repo repository.SocialAccountRepository, fc *cache.FetchCache, ttl time.Duration) AccountDirectory {
	return &accountDirectory{repo: repo, cache: fc, ttl: ttl}
}

func (d *accountDirectory) List(ctx context.Context, clientID, projectID string) ([]models.SocialAccount, error) {
	return cache.Get(ctx, d.cache, cache.AccountsKey(clientID, projectID), d.ttl,
		func(ctx context.Context) ([]models.SocialAccount, error) {
			rows, err := d.repo.ListByScope(ctx, clientID, projectID)
			if err != nil {
				return nil, err
			}
			accounts := make([]models.SocialAccount, 0, len(rows))
			for _, sa := range rows {
				accounts = append(accounts, *sa)
			}
			return accounts, nil
		})
}

func (d *accountDirectory) Get(ctx context.Context, clientID, projectID, accountID string) (models.SocialAccount, error) {
	accounts, err := d.List(ctx, clientID, projectID)
	if err != nil {
		return models.SocialAccount{}, err
	}
	for _, sa := range accounts {
		if sa.ID == accountID {
			return sa, nil
		}
	}
	return models.SocialAccount{}, apperr.NotFound("account", accountID)
}

func (d *accountDirectory) Invalidate(clientID, projectID string) {
	d.cache.Invalidate(cache.AccountsKey(clientID, projectID))
}
