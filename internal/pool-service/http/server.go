package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/internal/pool-service/dto"
	"github.com/radieske/bet-pool/internal/pool-service/repo"
	"github.com/radieske/bet-pool/internal/pool-service/service"
)

// HeaderActor identifica quem executou a ação (preenchido pelo gateway)
const HeaderActor = "X-Actor"

// API expõe o pool via REST (/api/v1) e WebSocket (/api/v1/ws)
type API struct {
	Log     *zap.Logger
	Svc     *service.Service
	WS      http.HandlerFunc // opcional
	Origins []string         // CORS; vazio libera todas
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := a.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", HeaderActor, "X-Pool-Pin"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if a.WS != nil {
			r.Get("/ws", a.WS) // sem timeout: conexão longa
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Second))

			r.Get("/state", a.getState)
			r.Get("/dashboard", a.getDashboard)
			r.Get("/activity", a.listActivity)

			r.Get("/sportsbooks", a.listSportsbooks)
			r.Post("/sportsbooks", a.createSportsbook)
			r.Put("/sportsbooks/balances", a.updateBalances)
			r.Put("/sportsbooks/{id}/balance", a.updateBalance)

			r.Get("/bets", a.listBets)
			r.Post("/bets", a.createBet)
			r.Post("/bets/quote", a.quoteBet)
			r.Put("/bets/{id}", a.updateBet)
			r.Delete("/bets/{id}", a.deleteBet)
			r.Post("/bets/{id}/settle", a.settleBet)

			r.Get("/undo", a.peekUndo)
			r.Post("/undo", a.undo)

			r.Get("/transactions", a.listTransactions)
			r.Post("/transactions", a.createTransaction)

			r.Get("/snapshots", a.listSnapshots)
			r.Post("/snapshots", a.recordSnapshot)

			r.Get("/settings", a.getSettings)
			r.Put("/settings/{key}", a.updateSetting)

			r.Post("/auth/verify", a.verifyPin) // usado pelo gateway
		})
	})
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func actor(r *http.Request) string {
	if a := r.Header.Get(HeaderActor); a != "" {
		return a
	}
	return "unknown"
}

// statusFor traduz erros do domínio para HTTP; a ordem importa porque
// erros do store carregam a causa original junto com ErrStore
func statusFor(err error) int {
	var partial *service.PartialUpdateError
	switch {
	case errors.Is(err, ledger.ErrInvalidBet),
		errors.Is(err, ledger.ErrInvalidTransaction),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidPin):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNothingToUndo),
		errors.Is(err, service.ErrNotPending),
		errors.Is(err, repo.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &partial), errors.Is(err, service.ErrStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := dto.ErrorResponse{Error: err.Error()}

	var partial *service.PartialUpdateError
	if errors.As(err, &partial) {
		resp.Applied, resp.Total = &partial.Applied, &partial.Total
	}
	if status >= http.StatusInternalServerError && a.Log != nil {
		a.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func badJSON(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json: " + err.Error()})
}
