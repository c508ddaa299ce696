package consumer

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-pool/internal/shared/kafka"
	"github.com/radieske/bet-pool/pkg/contracts/events"
)

// MessageReader é o que o Processor precisa do kafka.Reader
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// MessageWriter é o que o Processor precisa do kafka.Writer (DLQ)
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Repo persiste a trilha de auditoria (idempotente por id)
type Repo interface {
	LogActivity(ctx context.Context, a events.Activity) error
}

// Notifier avisa os participantes; falha aqui não impede a persistência
type Notifier interface {
	Notify(ctx context.Context, a events.Activity) error
}

// Processor consome a trilha de auditoria do Kafka, persiste e notifica.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log      *zap.Logger
	Reader   MessageReader
	Repo     Repo
	Notifier Notifier      // opcional
	DLQ      MessageWriter // opcional

	Retries int           // tentativas de persistência antes da DLQ
	Backoff time.Duration // espera base entre tentativas

	OnConsumed func()       // métricas (counter++)
	OnPersist  func()       // métricas
	OnNotified func()       // métricas
	OnError    func(string) // métricas por fase
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

// Run inicia o loop principal de consumo até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem; mensagens inválidas ou que esgotaram as tentativas vão para a DLQ
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	if p.OnConsumed != nil {
		p.OnConsumed()
	}

	var a events.Activity
	if err := json.Unmarshal(m.Value, &a); err != nil || a.ID == "" || a.Action == "" {
		p.Log.Warn("invalid activity message", zap.Error(err), zap.ByteString("key", m.Key))
		p.fail("decode")
		p.deadLetter(ctx, m)
		return
	}

	if err := p.persist(ctx, a); err != nil {
		p.Log.Error("activity persist failed",
			zap.String("id", a.ID), zap.String("action", a.Action), zap.Error(err))
		p.fail("db")
		p.deadLetter(ctx, m)
		return
	}
	if p.OnPersist != nil {
		p.OnPersist()
	}

	if p.Notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Notifier.Notify(nctx, a); err != nil {
		p.Log.Warn("activity notify failed", zap.String("action", a.Action), zap.Error(err))
		p.fail("notify")
		return
	}
	if p.OnNotified != nil {
		p.OnNotified()
	}
}

func (p *Processor) persist(ctx context.Context, a events.Activity) error {
	retries := p.Retries
	if retries <= 0 {
		retries = 1
	}
	var err error
	for i := 0; i < retries; i++ {
		if i > 0 {
			sleep(ctx, time.Duration(i)*p.Backoff)
		}
		if err = p.Repo.LogActivity(ctx, a); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	msg := kafka.Message{Key: m.Key, Value: m.Value, Time: time.Now()}
	if err := p.DLQ.WriteMessages(ctx, msg); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.fail("dlq")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
