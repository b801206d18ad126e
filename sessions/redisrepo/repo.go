// Package redisrepo stores sessions in Redis keyed by their opaque secret,
// with the TTL mirroring the session expiry.
package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/tasklane/identity/sessions"
)

const keyPrefix = "session:"

var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	redis *redis.Client
}

func New(redisClient *redis.Client) *Repo {
	return &Repo{redis: redisClient}
}

func (r *Repo) Save(ctx context.Context, session *sessions.Session) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[Repo.Save] marshal session")
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("[Repo.Save] session already expired")
	}

	if err := r.redis.Set(ctx, keyPrefix+session.Secret, encoded, ttl).Err(); err != nil {
		return errors.Wrap(err, "[Repo.Save] redis set")
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, secret string) (*sessions.Session, error) {
	data, err := r.redis.Get(ctx, keyPrefix+secret).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sessions.NotFoundErr
		}
		return nil, errors.Wrap(err, "[Repo.Get] redis get")
	}

	var session sessions.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "[Repo.Get] unmarshal session")
	}
	return &session, nil
}

func (r *Repo) Delete(ctx context.Context, secret string) error {
	if err := r.redis.Del(ctx, keyPrefix+secret).Err(); err != nil {
		return errors.Wrap(err, "[Repo.Delete] redis del")
	}
	return nil
}
