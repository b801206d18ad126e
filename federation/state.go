package federation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// flowTTL bounds how long a begin-step record waits for its callback.
const flowTTL = 10 * time.Minute

var StateNotFoundErr = errors.New("federation flow state not found")

// FlowState binds a provider callback to the begin step that initiated it.
// The state value itself is the random key, never stored inside the record.
type FlowState struct {
	Provider     string    `json:"provider"`
	Nonce        string    `json:"nonce"`
	CodeVerifier string    `json:"code_verifier"`
	CreatedAt    time.Time `json:"created_at"`
}

type StateRepo interface {
	Save(ctx context.Context, state string, flow *FlowState) error
	// Take removes the record as it is read; a replayed callback observes
	// StateNotFoundErr.
	Take(ctx context.Context, state string) (*FlowState, error)
}

const stateKeyPrefix = "oauth-flow:"

var _ StateRepo = (*RedisStateRepo)(nil)

type RedisStateRepo struct {
	redis *redis.Client
}

func NewRedisStateRepo(redisClient *redis.Client) *RedisStateRepo {
	return &RedisStateRepo{redis: redisClient}
}

func (r *RedisStateRepo) Save(ctx context.Context, state string, flow *FlowState) error {
	encoded, err := json.Marshal(flow)
	if err != nil {
		return pkgerrors.Wrap(err, "[RedisStateRepo.Save] marshal flow state")
	}
	if err := r.redis.Set(ctx, stateKeyPrefix+state, encoded, flowTTL).Err(); err != nil {
		return pkgerrors.Wrap(err, "[RedisStateRepo.Save] redis set")
	}
	return nil
}

func (r *RedisStateRepo) Take(ctx context.Context, state string) (*FlowState, error) {
	data, err := r.redis.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if err != nil {
		if pkgerrors.Is(err, redis.Nil) {
			return nil, StateNotFoundErr
		}
		return nil, pkgerrors.Wrap(err, "[RedisStateRepo.Take] redis getdel")
	}

	var flow FlowState
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, pkgerrors.Wrap(err, "[RedisStateRepo.Take] unmarshal flow state")
	}
	return &flow, nil
}
