package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/internal/pool-service/cache"
	httpapi "github.com/radieske/bet-pool/internal/pool-service/http"
	"github.com/radieske/bet-pool/internal/pool-service/producer"
	"github.com/radieske/bet-pool/internal/pool-service/pubsub"
	"github.com/radieske/bet-pool/internal/pool-service/repo"
	"github.com/radieske/bet-pool/internal/pool-service/service"
	"github.com/radieske/bet-pool/internal/pool-service/ws"
	sharedcache "github.com/radieske/bet-pool/internal/shared/cache"
	"github.com/radieske/bet-pool/internal/shared/config"
	"github.com/radieske/bet-pool/internal/shared/db"
	"github.com/radieske/bet-pool/internal/shared/kafka"
	"github.com/radieske/bet-pool/internal/shared/logger"
	"github.com/radieske/bet-pool/internal/shared/metrics"
	"github.com/radieske/bet-pool/internal/undo"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pool-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service",
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
		zap.String("store", cfg.StoreDriver))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Store: Postgres em produção, SQLite local
	conn, err := db.Connect(cfg.StoreDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("store connect", zap.Error(err))
	}
	defer conn.Close()

	store := repo.NewSQLStore(conn, cfg.StoreDriver)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("store migrate", zap.Error(err))
	}

	checks := metrics.Checks{"store": store.Ping}
	deps := service.Deps{
		Log:      logger.Component(log, "service"),
		Store:    store,
		History:  undo.NewHistory(cfg.UndoCapacity, cfg.UndoWindow),
		Location: cfg.Location(),
	}

	// Redis (opcional): cache do dashboard + broadcast de mudanças
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = sharedcache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer redisClient.Close()
		deps.Cache = cache.New(redisClient, 30*time.Second)
		deps.Changes = pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		log.Info("redis connected")
	}

	// Kafka (opcional): trilha de auditoria; sem Kafka grava direto no store
	if cfg.KafkaBrokers != "" {
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicActivity)
		defer writer.Close()
		deps.Activity = producer.NewKafkaPublisher(writer, cfg.TopicActivity)
		checks["kafka"] = func(ctx context.Context) error { return kafka.Ping(ctx, cfg.KafkaBrokers) }
		log.Info("kafka writer ready", zap.String("topic", cfg.TopicActivity))
	}

	// Métricas Prometheus
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pool_mutations_total", Help: "mutações por ação e resultado"}, []string{"action", "outcome"})
	undos := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pool_undo_total", Help: "undos aplicados por tipo"}, []string{"kind"})
	totalPool := prometheus.NewGauge(prometheus.GaugeOpts{Name: "pool_total_dollars", Help: "saldo total do pool"})
	bucket := prometheus.NewGauge(prometheus.GaugeOpts{Name: "pool_bucket_dollars", Help: "saldo sacado ainda não repassado"})
	atRisk := prometheus.NewGauge(prometheus.GaugeOpts{Name: "pool_at_risk_dollars", Help: "valor em apostas pending"})
	equity := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "pool_equity_dollars", Help: "equity por participante"}, []string{"person"})
	prometheus.MustRegister(mutations, undos, totalPool, bucket, atRisk, equity)

	svc := service.New(deps)
	svc.OnMutation = func(action, outcome string) { mutations.WithLabelValues(action, outcome).Inc() }
	svc.OnUndo = func(kind string) { undos.WithLabelValues(kind).Inc() }
	svc.OnDashboard = func(d service.Dashboard) {
		totalPool.Set(d.TotalPool.InexactFloat64())
		bucket.Set(d.Bucket.InexactFloat64())
		atRisk.Set(d.AtRisk.InexactFloat64())
		equity.WithLabelValues(string(ledger.PersonA)).Set(d.EquityA.InexactFloat64())
		equity.WithLabelValues(string(ledger.PersonB)).Set(d.EquityB.InexactFloat64())
	}

	// WebSocket: só faz sentido com o canal Redis
	origins := allowedOrigins(cfg)
	api := &httpapi.API{Log: logger.Component(log, "http"), Svc: svc, Origins: origins}
	if redisClient != nil {
		hub := ws.NewHub(logger.Component(log, "ws"), originChecker(origins))
		ws.StartRedisSubscriber(ctx, logger.Component(log, "ws"), redisClient, cfg.RedisPubSubChannel, hub)
		api.WS = hub.HandleWS
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: "pool_ws_clients", Help: "clientes WebSocket conectados"},
			func() float64 { return float64(hub.Clients()) },
		))
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, checks)

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("pool-service stopped")
}

// allowedOrigins lê CORS_ORIGINS ("http://a,http://b"); vazio libera todas
func allowedOrigins(cfg config.Config) []string {
	var out []string
	for _, o := range strings.Split(cfg.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(origins) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
