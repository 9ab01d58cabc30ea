package odds

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

// RedisCache guarda a tripla corrente de cada partida com TTL curto para
// aliviar leituras da API.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

func key(matchID string) string { return "odds:current:" + matchID }

func (r *RedisCache) SetCurrent(ctx context.Context, e events.OddsUpdate) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(e.MatchID), b, r.TTL).Err()
}

// GetCurrent devolve (false, nil) num cache miss.
func (r *RedisCache) GetCurrent(ctx context.Context, matchID string, dst *events.OddsUpdate) (bool, error) {
	b, err := r.Client.Get(ctx, key(matchID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}
