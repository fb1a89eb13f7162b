package port

import (
	"context"

	"arkx/internal/domain/model"
)

// AccountStore is the durable per-account row contract. Implementations may
// fail on any call (I/O); the only consistency promise is read-after-write
// within the same process.
type AccountStore interface {
	// Whole-row operations
	GetAccount(ctx context.Context, name string) (model.AccountRow, error)
	ListAccounts(ctx context.Context, nameFilter string) ([]model.AccountRow, error)
	UpsertAccount(ctx context.Context, row model.AccountRow) error
	DeleteAccount(ctx context.Context, name string) error

	// Narrowly scoped partial updates
	GetCookies(ctx context.Context, name string) (model.CookieSet, error)
	PutCookies(ctx context.Context, name string, cs model.CookieSet) error
	GetProxy(ctx context.Context, name string) (string, error)
	SetProxy(ctx context.Context, name, proxy string) error
	GetCredentials(ctx context.Context, name string) (email, password string, err error)
	SetCredentials(ctx context.Context, name, email, password string) error
	UpdateStats(ctx context.Context, name string, stats model.Stats) error

	Close() error
}

// CookieCache is a fast, expiring front for persisted cookie sets.
// A miss is svc.ErrNotFound; expiry is handled by the backend's TTL.
type CookieCache interface {
	GetCookies(ctx context.Context, name string) (model.CookieSet, error)
	PutCookies(ctx context.Context, name string, cs model.CookieSet) error
	InvalidateCookies(ctx context.Context, name string) error
}
