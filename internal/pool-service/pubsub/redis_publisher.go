package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-pool/pkg/contracts/events"
)

// RedisBroadcaster avisa, via Redis Pub/Sub, que o estado do pool mudou.
// Todas as instâncias do pool-service repassam para seus clientes WS.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) PublishChange(ctx context.Context, ev events.PoolChanged) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
