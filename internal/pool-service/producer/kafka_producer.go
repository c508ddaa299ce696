package producer

import (
	"context"

	"github.com/radieske/bet-pool/internal/shared/kafka"
	"github.com/radieske/bet-pool/pkg/contracts/events"
)

// KafkaPublisher publica a trilha de auditoria no tópico de activity
type KafkaPublisher struct {
	Writer *kafka.Writer
	Topic  string
}

func NewKafkaPublisher(w *kafka.Writer, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

// PublishActivity usa o ator como chave: eventos do mesmo participante mantêm a ordem
func (p *KafkaPublisher) PublishActivity(ctx context.Context, a events.Activity) error {
	return kafka.WriteJSON(ctx, p.Writer, a.ActorID, a)
}
