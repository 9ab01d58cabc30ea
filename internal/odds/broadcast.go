package odds

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

const ChannelOddsBroadcast = "odds_updates_broadcast"

// RedisBroadcaster repassa atualizações de odds para o canal Pub/Sub que
// alimenta o hub WebSocket da API.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = ChannelOddsBroadcast
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, e events.OddsUpdate) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
