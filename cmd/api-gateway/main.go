package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-pool/internal/gateway"
	"github.com/radieske/bet-pool/internal/shared/config"
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

	var origins []string
	for _, o := range strings.Split(cfg.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	// target: pool-service (ex.: /api/v1/* -> pool-service)
	pool := gateway.NewPoolClient(cfg.PoolURL)
	gw, err := gateway.New(logger.Component(log, "gateway"), cfg.PoolURL, pool, gateway.Options{Origins: origins})
	if err != nil {
		log.Fatal("gateway init", zap.Error(err))
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, metrics.Checks{
		"pool": func(ctx context.Context) error {
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, cfg.PoolURL+"/health", nil)
			res, err := pool.HTTP.Do(req)
			if err != nil {
				return err
			}
			res.Body.Close()
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("pool health http %d", res.StatusCode)
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           gw.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api-gateway listening", zap.String("addr", srv.Addr), zap.String("pool", cfg.PoolURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("gateway failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("api-gateway stopped")
}
