package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HealthFunc func(ctx context.Context) error

// Checks agrupa dependências críticas por nome ("store", "redis", "kafka")
type Checks map[string]HealthFunc

// Handler monta o mux de /metrics e /healthz.
// /healthz executa as checagens em ordem alfabética e falha na primeira dependência indisponível.
func Handler(checks Checks) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("%s unhealthy: %v", name, err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// StartMetricsServer sobe um servidor HTTP leve só pra /metrics e /healthz.
// executado numa goroutine no main de cada serviço.
func StartMetricsServer(log *zap.Logger, port string, checks Checks) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: Handler(checks),
	}

	go func() {
		log.Info("metrics/health listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics srv", zap.Error(err))
		}
	}()

	return srv
}
