// Package redisstore persists ephemeral secrets in Redis. Consumption runs
// inside a WATCH transaction so that two concurrent verifications of the
// same secret cannot both succeed.
package redisstore

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/tasklane/identity/secrets"
)

const keyPrefix = "secret"

var _ secrets.Store = (*Store)(nil)

type Store struct {
	redis *redis.Client
}

func New(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(userID string, purpose secrets.Purpose) string {
	return keyPrefix + ":" + string(purpose) + ":" + userID
}

// Save overwrites any outstanding record under the same key, which is what
// enforces the at-most-one-live-secret invariant per (user, purpose).
func (s *Store) Save(ctx context.Context, record *secrets.Record, ttl time.Duration) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "[Store.Save] marshal record")
	}

	if err := s.redis.Set(ctx, s.key(record.UserID, record.Purpose), encoded, ttl).Err(); err != nil {
		return errors.Wrap(err, "[Store.Save] redis set")
	}
	return nil
}

func (s *Store) Consume(ctx context.Context, userID string, purpose secrets.Purpose, presentedHash [32]byte, now time.Time) error {
	const maxRetries = 4
	key := s.key(userID, purpose)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return secrets.NotFoundErr
				}
				return errors.Wrap(err, "[Store.Consume] redis get")
			}

			var record secrets.Record
			if err := json.Unmarshal(data, &record); err != nil {
				return errors.Wrap(err, "[Store.Consume] unmarshal record")
			}

			if now.Unix() > record.ExpiresAt {
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return secrets.ExpiredErr
			}

			if subtle.ConstantTimeCompare(record.ValueHash[:], presentedHash[:]) != 1 {
				return secrets.MismatchErr
			}

			// Delete inside the transaction: if another consumer raced us
			// the EXEC fails and we retry, observing the deletion.
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return secrets.NotFoundErr
}
