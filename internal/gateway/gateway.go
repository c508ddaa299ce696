// Package gateway é a porta de entrada pública: valida o PIN do participante
// e repassa as chamadas para o pool-service com o ator identificado.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const (
	HeaderPin   = "X-Pool-Pin"
	HeaderActor = "X-Actor"
)

// PinVerifier resolve um PIN no participante dono dele
type PinVerifier interface {
	VerifyPin(ctx context.Context, pin string) (string, error)
}

type Gateway struct {
	log     *zap.Logger
	pins    PinVerifier
	proxy   *httputil.ReverseProxy
	limiter *attemptLimiter
	origins []string
}

type Options struct {
	Origins     []string      // CORS; vazio libera todas
	MaxFailures int           // falhas de PIN por IP antes do bloqueio
	LockWindow  time.Duration // janela de contagem das falhas
}

func New(log *zap.Logger, poolURL string, pins PinVerifier, opts Options) (*Gateway, error) {
	u, err := url.Parse(poolURL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	if opts.LockWindow <= 0 {
		opts.LockWindow = time.Minute
	}

	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("pool-service unreachable", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "pool-service unavailable"})
	}

	return &Gateway{
		log:     log,
		pins:    pins,
		proxy:   proxy,
		limiter: newAttemptLimiter(opts.MaxFailures, opts.LockWindow),
		origins: opts.Origins,
	}, nil
}

func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	origins := g.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", HeaderPin},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/auth/pin", g.login)
	r.Handle("/api/v1/auth/*", http.NotFoundHandler()) // verificação é interna

	r.Group(func(r chi.Router) {
		r.Use(g.requirePin)
		r.Handle("/api/v1/*", g.proxy)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type pinRequest struct {
	Pin string `json:"pin"`
}

// login troca o PIN pelo ator; o cliente segue mandando o PIN em X-Pool-Pin
func (g *Gateway) login(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	actor, status := g.verify(r, req.Pin)
	if status != http.StatusOK {
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"actor": actor})
}

// requirePin valida o PIN e injeta X-Actor; o ator enviado pelo cliente é descartado.
// WebSocket não aceita headers no browser, então o PIN também vale em ?pin=
func (g *Gateway) requirePin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pin := r.Header.Get(HeaderPin)
		if pin == "" {
			pin = r.URL.Query().Get("pin")
		}
		actor, status := g.verify(r, pin)
		if status != http.StatusOK {
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}

		r.Header.Del(HeaderPin)
		r.Header.Set(HeaderActor, actor)
		if r.URL.Query().Has("pin") {
			q := r.URL.Query()
			q.Del("pin")
			r.URL.RawQuery = q.Encode()
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) verify(r *http.Request, pin string) (string, int) {
	key := clientIP(r)
	if g.limiter.Blocked(key) {
		return "", http.StatusTooManyRequests
	}
	if pin == "" {
		return "", http.StatusUnauthorized
	}
	actor, err := g.pins.VerifyPin(r.Context(), pin)
	switch {
	case errors.Is(err, ErrInvalidPin):
		g.limiter.Fail(key)
		g.log.Info("pin rejected", zap.String("remote", key))
		return "", http.StatusUnauthorized
	case err != nil:
		g.log.Warn("pin verify failed", zap.Error(err))
		return "", http.StatusBadGateway
	}
	g.limiter.Reset(key)
	return actor, http.StatusOK
}

// clientIP usa só o endereço da conexão; X-Real-IP/X-Forwarded-For são do cliente
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
