package store

import (
	"context"
	"errors"

	"PipelineSync/internal/pipeline/model"
)

// ErrNotFound is returned when an update targets an id the store lacks.
var ErrNotFound = errors.New("record not found")

// DealReader is what the differ needs: a fresh read of persisted state.
type DealReader interface {
	ListDeals(ctx context.Context) ([]model.PersistedDeal, error)
}

// Store is the persistence surface of the reconciliation engine. There is no
// hard delete; removal is an UpdateDeal to Closed_Lost.
type Store interface {
	DealReader
	ListAccounts(ctx context.Context) ([]model.Account, error)
	CreateAccount(ctx context.Context, a model.Account) (string, error)
	UpdateAccount(ctx context.Context, id string, patch model.AccountPatch) error
	CreateDeal(ctx context.Context, accountID string, d model.CanonicalDeal) (string, error)
	UpdateDeal(ctx context.Context, id string, patch model.DealPatch) error
	Close() error
}
