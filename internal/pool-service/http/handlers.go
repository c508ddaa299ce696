package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/bet-pool/internal/pool-service/dto"
	"github.com/radieske/bet-pool/internal/pool-service/service"
)

// writeState devolve o estado recarregado sem expor PINs
func writeState(w http.ResponseWriter, status int, st service.State) {
	st.Settings = service.PublicSettings(st.Settings)
	writeJSON(w, status, st)
}

func (a *API) getState(w http.ResponseWriter, r *http.Request) {
	st, err := a.Svc.Load(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusOK, st)
}

func (a *API) getDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.Svc.Dashboard(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) listActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	list, err := a.Svc.Activity(r.Context(), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// sportsbooks

func (a *API) listSportsbooks(w http.ResponseWriter, r *http.Request) {
	st, err := a.Svc.Load(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Sportsbooks)
}

func (a *API) createSportsbook(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSportsbookRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	st, err := a.Svc.CreateSportsbook(r.Context(), actor(r), req.Name, req.Balance)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusCreated, st)
}

func (a *API) updateBalance(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateBalanceRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	st, err := a.Svc.UpdateBalance(r.Context(), actor(r), chi.URLParam(r, "id"), req.Balance)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusOK, st)
}

func (a *API) updateBalances(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateBalancesRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	st, err := a.Svc.UpdateBalances(r.Context(), actor(r), req.Balances)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusOK, st)
}

// bets

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("status")
	if !service.ValidFilter(filter) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "unknown status filter " + strconv.Quote(filter)})
		return
	}
	st, err := a.Svc.Load(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.FilterBets(st, filter))
}

func (a *API) createBet(w http.ResponseWriter, r *http.Request) {
	var req dto.BetRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	st, err := a.Svc.CreateBet(r.Context(), actor(r), req.Bet())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusCreated, st)
}

func (a *API) quoteBet(w http.ResponseWriter, r *http.Request) {
	var req dto.QuoteRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	q, err := a.Svc.Quote(req.TotalWager, req.HisWager, req.BaseOdds, req.BoostPct)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) updateBet(w http.ResponseWriter, r *http.Request) {
	var req dto.BetRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	st, err := a.Svc.UpdateBet(r.Context(), actor(r), chi.URLParam(r, "id"), req.Bet())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusOK, st)
}

func (a *API) deleteBet(w http.ResponseWriter, r *http.Request) {
	st, err := a.Svc.DeleteBet(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusOK, st)
}

func (a *API) settleBet(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	st, err := a.Svc.SettleBet(r.Context(), actor(r), chi.URLParam(r, "id"), req.Result)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusOK, st)
}

// undo

func (a *API) peekUndo(w http.ResponseWriter, r *http.Request) {
	e, depth, ok := a.Svc.PeekUndo()
	resp := dto.UndoStatusResponse{Available: ok, Depth: depth}
	if ok {
		resp.Next = &e
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) undo(w http.ResponseWriter, r *http.Request) {
	res, err := a.Svc.Undo(r.Context(), actor(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	res.State.Settings = service.PublicSettings(res.State.Settings)
	writeJSON(w, http.StatusOK, res)
}

// transactions

func (a *API) listTransactions(w http.ResponseWriter, r *http.Request) {
	st, err := a.Svc.Load(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Transactions)
}

func (a *API) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req dto.TransactionRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	st, err := a.Svc.CreateTransaction(r.Context(), actor(r), req.Transaction())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusCreated, st)
}

// snapshots

func (a *API) listSnapshots(w http.ResponseWriter, r *http.Request) {
	st, err := a.Svc.Load(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshots)
}

func (a *API) recordSnapshot(w http.ResponseWriter, r *http.Request) {
	st, err := a.Svc.RecordSnapshot(r.Context(), actor(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusCreated, st)
}

// settings

func (a *API) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := a.Svc.Load(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.PublicSettings(st.Settings))
}

func (a *API) updateSetting(w http.ResponseWriter, r *http.Request) {
	var req dto.SettingRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	st, err := a.Svc.UpdateSetting(r.Context(), actor(r), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeState(w, http.StatusOK, st)
}

func (a *API) verifyPin(w http.ResponseWriter, r *http.Request) {
	var req dto.PinRequest
	if err := decode(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	p, err := a.Svc.VerifyPin(r.Context(), req.Pin)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PinResponse{Actor: p})
}
