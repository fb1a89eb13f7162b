package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"arkx/internal/application/port"
	"arkx/internal/domain/model"
	"arkx/internal/infrastructure/svc"
)

// Repo caches cookie sets with a server-side TTL so stale entries drop out
// without a sweeper.
type Repo struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Repo {
	if prefix == "" {
		prefix = "arkx"
	}
	return &Repo{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Repo) key(name string) string {
	return r.prefix + ":cookies:" + name
}

func (r *Repo) GetCookies(ctx context.Context, name string) (model.CookieSet, error) {
	raw, err := r.rdb.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.CookieSet{}, svc.ErrNotFound
	}
	if err != nil {
		return model.CookieSet{}, err
	}
	var cs model.CookieSet
	if err := json.Unmarshal(raw, &cs); err != nil {
		return model.CookieSet{}, errors.Wrap(err, "decode cached cookies")
	}
	return cs, nil
}

func (r *Repo) PutCookies(ctx context.Context, name string, cs model.CookieSet) error {
	b, err := json.Marshal(cs)
	if err != nil {
		return errors.Wrap(err, "encode cookies")
	}
	return r.rdb.Set(ctx, r.key(name), b, r.ttl).Err()
}

func (r *Repo) InvalidateCookies(ctx context.Context, name string) error {
	return r.rdb.Del(ctx, r.key(name)).Err()
}

var _ port.CookieCache = (*Repo)(nil)
