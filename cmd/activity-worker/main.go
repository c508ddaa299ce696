package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-pool/internal/activity/consumer"
	"github.com/radieske/bet-pool/internal/activity/notify"
	"github.com/radieske/bet-pool/internal/pool-service/repo"
	"github.com/radieske/bet-pool/internal/shared/config"
	"github.com/radieske/bet-pool/internal/shared/db"
	"github.com/radieske/bet-pool/internal/shared/kafka"
	"github.com/radieske/bet-pool/internal/shared/logger"
	"github.com/radieske/bet-pool/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Mesmo store do pool-service; a tabela activity_log é idempotente por id
	conn, err := db.Connect(cfg.StoreDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("store connect", zap.Error(err))
	}
	defer conn.Close()

	store := repo.NewSQLStore(conn, cfg.StoreDriver)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("store migrate", zap.Error(err))
	}

	// Consumer group activity-worker
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicActivity, "activity-worker")
	defer reader.Close()

	var dlq *kafka.Writer
	if cfg.TopicActivityDLQ != "" {
		dlq = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicActivityDLQ)
		defer dlq.Close()
	}

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "activity_messages_consumed_total", Help: "mensagens consumidas"})
	persisted := prometheus.NewCounter(prometheus.CounterOpts{Name: "activity_db_writes_total", Help: "atividades gravadas"})
	notified := prometheus.NewCounter(prometheus.CounterOpts{Name: "activity_notifications_total", Help: "avisos enviados ao Telegram"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "activity_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persisted, notified, errorsBy)

	proc := &consumer.Processor{
		Log:        logger.Component(log, "consumer"),
		Reader:     reader,
		Repo:       store,
		Retries:    3,
		Backoff:    300 * time.Millisecond,
		OnConsumed: func() { consumed.Inc() },
		OnPersist:  func() { persisted.Inc() },
		OnNotified: func() { notified.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}
	if dlq != nil {
		proc.DLQ = dlq
	}

	// Telegram é opcional
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal("telegram init", zap.Error(err))
		}
		proc.Notifier = tg
		log.Info("telegram notifications enabled", zap.Int64("chat_id", cfg.TelegramChatID))
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, metrics.Checks{
		"store": store.Ping,
		"kafka": func(ctx context.Context) error { return kafka.Ping(ctx, cfg.KafkaBrokers) },
	})
	defer metricsSrv.Close()

	log.Info("activity-worker started",
		zap.String("consume", cfg.TopicActivity),
		zap.String("dlq", cfg.TopicActivityDLQ))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("activity-worker stopped")
}
