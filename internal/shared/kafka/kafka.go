package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type (
	Writer  = kafka.Writer
	Reader  = kafka.Reader
	Message = kafka.Message
)

// Brokers converte "a:9092,b:9092" em lista, ignorando entradas vazias
func Brokers(csv string) []string {
	var out []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func NewWriter(brokers string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(Brokers(brokers)...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // mesma chave (ator) -> mesma partição, preserva ordem
		AllowAutoTopicCreation: true,
		WriteTimeout:           2 * time.Second,
	}
}

func NewReader(brokers string, topic string, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        Brokers(brokers),
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// WriteJSON serializa v e envia uma mensagem com a chave informada
func WriteJSON(ctx context.Context, w *kafka.Writer, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal kafka payload: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}

	return w.WriteMessages(ctx, msg)
}

func ReadNext(ctx context.Context, r *kafka.Reader) (key []byte, value []byte, err error) {
	m, err := r.ReadMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read kafka message: %w", err)
	}
	return m.Key, m.Value, nil
}

// Ping tenta abrir conexão com algum broker da lista (health check)
func Ping(ctx context.Context, brokers string) error {
	list := Brokers(brokers)
	if len(list) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	var last error
	for _, b := range list {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		last = err
	}
	return fmt.Errorf("no kafka broker reachable: %w", last)
}
