package ticketstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pending-auth:"

var _ Repo = (*RedisRepo)(nil)

type RedisRepo struct {
	redis *redis.Client
}

func NewRedisRepo(redisClient *redis.Client) *RedisRepo {
	return &RedisRepo{redis: redisClient}
}

func (r *RedisRepo) Save(ctx context.Context, id string, ticket Ticket, ttl time.Duration) error {
	encoded, err := json.Marshal(ticket)
	if err != nil {
		return errors.Wrap(err, "[RedisRepo.Save] marshal ticket")
	}
	if err := r.redis.Set(ctx, keyPrefix+id, encoded, ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Save] redis set")
	}
	return nil
}

func (r *RedisRepo) Peek(ctx context.Context, id string) (Ticket, error) {
	data, err := r.redis.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Ticket{}, NotFoundErr
		}
		return Ticket{}, errors.Wrap(err, "[RedisRepo.Peek] redis get")
	}

	var ticket Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return Ticket{}, errors.Wrap(err, "[RedisRepo.Peek] unmarshal ticket")
	}
	return ticket, nil
}

func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, keyPrefix+id).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Delete] redis del")
	}
	return nil
}
