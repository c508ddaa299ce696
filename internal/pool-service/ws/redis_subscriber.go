package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bet-pool/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal de mudanças e repassa para os clientes do Hub.
// Roda numa goroutine até o contexto ser cancelado.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var ev events.PoolChanged
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(ev)
			}
		}
	}()
}
