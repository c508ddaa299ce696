package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/internal/undo"
	"github.com/radieske/bet-pool/pkg/contracts/events"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CreateSportsbook cadastra uma casa com saldo inicial
func (s *Service) CreateSportsbook(ctx context.Context, actor, name string, balance decimal.Decimal) (State, error) {
	const action = events.ActionSportsbookCreated
	name = strings.TrimSpace(name)
	if name == "" {
		return State{}, s.fail(action, invalid("sportsbook name is required"))
	}
	if balance.IsNegative() {
		return State{}, s.fail(action, invalid("balance must be >= 0"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sb, err := s.store.CreateSportsbook(ctx, name, balance)
	if err != nil {
		return State{}, s.fail(action, storeErr("create sportsbook", err))
	}
	s.afterMutation(ctx, actor, action, sb.ID, map[string]any{
		"sportsbook_id": sb.ID, "name": sb.Name, "balance": balance.StringFixed(2),
	})
	return s.Load(ctx)
}

// UpdateBalance troca o saldo informado de uma casa
func (s *Service) UpdateBalance(ctx context.Context, actor, id string, balance decimal.Decimal) (State, error) {
	const action = events.ActionBalanceUpdated
	if balance.IsNegative() {
		return State{}, s.fail(action, invalid("balance must be >= 0"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.UpdateSportsbookBalance(ctx, id, balance); err != nil {
		return State{}, s.fail(action, storeErr("update balance", err))
	}
	if err := s.store.UpdateSetting(ctx, SettingLastBooksUpdate, s.clock().Format(time.RFC3339)); err != nil {
		return State{}, s.fail(action, storeErr("update last books update", err))
	}
	s.afterMutation(ctx, actor, action, id, map[string]any{
		"sportsbook_id": id, "balance": balance.StringFixed(2),
	})
	return s.Load(ctx)
}

// BalanceUpdate é um item do update em lote
type BalanceUpdate struct {
	SportsbookID string          `json:"sportsbook_id"`
	Balance      decimal.Decimal `json:"balance"`
}

// UpdateBalances grava o snapshot do dia (estado anterior) e aplica os saldos em ordem.
// Falha no meio devolve *PartialUpdateError junto com o estado recarregado; nada é desfeito.
func (s *Service) UpdateBalances(ctx context.Context, actor string, updates []BalanceUpdate) (State, error) {
	const action = events.ActionBalancesUpdated
	if len(updates) == 0 {
		return State{}, s.fail(action, invalid("no balances to update"))
	}
	for _, u := range updates {
		if strings.TrimSpace(u.SportsbookID) == "" {
			return State{}, s.fail(action, invalid("sportsbook is required"))
		}
		if u.Balance.IsNegative() {
			return State{}, s.fail(action, invalid("balance must be >= 0"))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.Load(ctx)
	if err != nil {
		return State{}, s.fail(action, err)
	}
	for _, u := range updates {
		if _, ok := before.Sportsbook(u.SportsbookID); !ok {
			return State{}, s.fail(action, fmt.Errorf("sportsbook %s: %w", u.SportsbookID, ErrNotFound))
		}
	}

	now := s.clock()
	total := len(updates)

	snap := ledger.BuildSnapshot(before.Sportsbooks, before.Bets, now)
	if err := s.store.UpsertSnapshot(ctx, snap); err != nil {
		return s.partial(ctx, actor, action, 0, total, storeErr("upsert snapshot", err))
	}

	for i, u := range updates {
		if err := s.store.UpdateSportsbookBalance(ctx, u.SportsbookID, u.Balance); err != nil {
			return s.partial(ctx, actor, action, i, total, storeErr("update balance "+u.SportsbookID, err))
		}
	}

	if err := s.store.UpdateSetting(ctx, SettingLastBooksUpdate, now.Format(time.RFC3339)); err != nil {
		return s.partial(ctx, actor, action, total, total, storeErr("update last books update", err))
	}

	s.afterMutation(ctx, actor, action, "", map[string]any{
		"count": total, "snapshot_date": snap.Date,
	})
	return s.Load(ctx)
}

func (s *Service) partial(ctx context.Context, actor, action string, applied, total int, err error) (State, error) {
	perr := &PartialUpdateError{Applied: applied, Total: total, Err: err}
	s.fail(action, perr)
	if applied > 0 {
		s.afterMutation(ctx, actor, action, "", map[string]any{
			"applied": applied, "total": total, "error": err.Error(),
		})
	}
	st, loadErr := s.Load(ctx)
	if loadErr != nil {
		return State{}, perr
	}
	return st, perr
}

// RecordSnapshot grava (ou substitui) o snapshot de hoje com o estado atual
func (s *Service) RecordSnapshot(ctx context.Context, actor string) (State, error) {
	const action = events.ActionSnapshot

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Load(ctx)
	if err != nil {
		return State{}, s.fail(action, err)
	}
	snap := ledger.BuildSnapshot(st.Sportsbooks, st.Bets, s.clock())
	if err := s.store.UpsertSnapshot(ctx, snap); err != nil {
		return State{}, s.fail(action, storeErr("upsert snapshot", err))
	}
	s.afterMutation(ctx, actor, action, snap.Date, map[string]any{
		"snapshot_date": snap.Date, "cash": snap.Cash.StringFixed(2), "at_risk": snap.AtRisk.StringFixed(2),
	})
	return s.Load(ctx)
}

// CreateBet valida e grava uma aposta pending
func (s *Service) CreateBet(ctx context.Context, actor string, b ledger.Bet) (State, error) {
	const action = events.ActionBetCreated
	b.Status = ledger.StatusPending
	b.SettledAt = nil
	b.Description = strings.TrimSpace(b.Description)
	if err := ledger.ValidateBet(b); err != nil {
		return State{}, s.fail(action, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSportsbook(ctx, b.SportsbookID); err != nil {
		return State{}, s.fail(action, err)
	}
	if b.PlacedAt.IsZero() {
		b.PlacedAt = s.now()
	}

	created, err := s.store.CreateBet(ctx, b)
	if err != nil {
		return State{}, s.fail(action, storeErr("create bet", err))
	}
	s.afterMutation(ctx, actor, action, created.ID, betDetails(created))
	return s.Load(ctx)
}

// UpdateBet edita campos descritivos e o split; status e datas não mudam
func (s *Service) UpdateBet(ctx context.Context, actor, id string, in ledger.Bet) (State, error) {
	const action = events.ActionBetUpdated
	in.Description = strings.TrimSpace(in.Description)
	in.Status = ""
	if err := ledger.ValidateBet(in); err != nil {
		return State{}, s.fail(action, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.store.GetBet(ctx, id)
	if err != nil {
		return State{}, s.fail(action, storeErr("get bet", err))
	}

	cur.SportsbookID = in.SportsbookID
	cur.Sport = in.Sport
	cur.Description = in.Description
	cur.BaseOdds = in.BaseOdds
	cur.BoostPct = in.BoostPct
	cur.TotalWager = in.TotalWager
	cur.WagerA = in.WagerA
	cur.WagerB = in.WagerB
	cur.Notes = in.Notes
	if err := s.requireSportsbook(ctx, cur.SportsbookID); err != nil {
		return State{}, s.fail(action, err)
	}

	if err := s.store.UpdateBet(ctx, cur); err != nil {
		return State{}, s.fail(action, storeErr("update bet", err))
	}
	s.afterMutation(ctx, actor, action, id, betDetails(cur))
	return s.Load(ctx)
}

// DeleteBet apaga a aposta guardando uma cópia completa para undo
func (s *Service) DeleteBet(ctx context.Context, actor, id string) (State, error) {
	const action = events.ActionBetDeleted

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.store.GetBet(ctx, id)
	if err != nil {
		return State{}, s.fail(action, storeErr("get bet", err))
	}
	if err := s.store.DeleteBet(ctx, id); err != nil {
		return State{}, s.fail(action, storeErr("delete bet", err))
	}
	s.history.Push(undo.Delete(b))
	s.afterMutation(ctx, actor, action, id, betDetails(b))
	return s.Load(ctx)
}

// SettleBet liquida uma aposta pending como won/lost/push
func (s *Service) SettleBet(ctx context.Context, actor, id string, result ledger.Status) (State, error) {
	const action = events.ActionBetSettled
	if err := ledger.ValidateResult(result); err != nil {
		return State{}, s.fail(action, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.store.GetBet(ctx, id)
	if err != nil {
		return State{}, s.fail(action, storeErr("get bet", err))
	}
	if b.Status != ledger.StatusPending {
		return State{}, s.fail(action, fmt.Errorf("bet %s is %s: %w", id, b.Status, ErrNotPending))
	}

	if err := s.store.SettleBet(ctx, id, result, s.now()); err != nil {
		return State{}, s.fail(action, storeErr("settle bet", err))
	}
	s.history.Push(undo.Settle(b, result))

	details := betDetails(b)
	details["result"] = string(result)
	details["pnl"] = ledger.BetPnl(withStatus(b, result)).StringFixed(2)
	s.afterMutation(ctx, actor, action, id, details)
	return s.Load(ctx)
}

// UndoResult traz a ação desfeita, a próxima reversível (se houver) e o estado novo
type UndoResult struct {
	Undone undo.Entry  `json:"undone"`
	Next   *undo.Entry `json:"next,omitempty"`
	State  State       `json:"state"`
}

// Undo reverte a ação mais recente do histórico.
// A entrada só sai da pilha quando o store confirma a reversão.
func (s *Service) Undo(ctx context.Context, actor string) (UndoResult, error) {
	const action = events.ActionUndo

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.history.Peek()
	if !ok {
		return UndoResult{}, s.fail(action, ErrNothingToUndo)
	}

	var err error
	switch e.Kind {
	case undo.KindSettle:
		err = s.store.UnsettleBet(ctx, e.Bet.ID)
	case undo.KindDelete:
		err = s.store.RestoreBet(ctx, e.Bet)
	default:
		err = fmt.Errorf("unknown undo kind %q", e.Kind)
	}
	if err != nil {
		return UndoResult{}, s.fail(action, storeErr("undo "+string(e.Kind), err))
	}

	// a entrada pode ter expirado durante a escrita no store; o que foi desfeito é a que foi lida
	undone, next, ok := s.history.Pop()
	if !ok {
		undone, next = e, nil
	}
	if s.OnUndo != nil {
		s.OnUndo(string(undone.Kind))
	}

	details := betDetails(undone.Bet)
	details["kind"] = string(undone.Kind)
	if undone.Result != "" {
		details["result"] = string(undone.Result)
	}
	s.afterMutation(ctx, actor, action, undone.Bet.ID, details)

	st, err := s.Load(ctx)
	if err != nil {
		return UndoResult{}, err
	}
	return UndoResult{Undone: undone, Next: next, State: st}, nil
}

// PeekUndo mostra a próxima ação reversível sem desfazer
func (s *Service) PeekUndo() (undo.Entry, int, bool) {
	e, ok := s.history.Peek()
	return e, s.history.Len(), ok
}

// CreateTransaction registra deposit/withdrawal/disbursement (append-only)
func (s *Service) CreateTransaction(ctx context.Context, actor string, tx ledger.Transaction) (State, error) {
	const action = events.ActionTransaction
	tx = ledger.NormalizeTransaction(tx)
	if err := ledger.ValidateTransaction(tx); err != nil {
		return State{}, s.fail(action, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.SportsbookID != "" {
		if err := s.requireSportsbook(ctx, tx.SportsbookID); err != nil {
			return State{}, s.fail(action, err)
		}
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return State{}, s.fail(action, storeErr("create transaction", err))
	}
	s.afterMutation(ctx, actor, action, created.ID, map[string]any{
		"transaction_id": created.ID,
		"type":           string(created.Type),
		"person":         string(created.Person),
		"sportsbook_id":  created.SportsbookID,
		"amount":         created.Amount.StringFixed(2),
	})
	return s.Load(ctx)
}

// UpdateSetting grava um par chave/valor; PINs precisam ter 4 dígitos
func (s *Service) UpdateSetting(ctx context.Context, actor, key, value string) (State, error) {
	const action = events.ActionSettingUpdated
	key = strings.TrimSpace(key)
	if key == "" {
		return State{}, s.fail(action, invalid("setting key is required"))
	}
	isPin := key == SettingPinA || key == SettingPinB
	if isPin && !pinPattern.MatchString(value) {
		return State{}, s.fail(action, invalid("pin must be 4 digits"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.UpdateSetting(ctx, key, value); err != nil {
		return State{}, s.fail(action, storeErr("update setting", err))
	}
	details := map[string]any{"key": key}
	if !isPin {
		details["value"] = value
	}
	s.afterMutation(ctx, actor, action, key, details)
	return s.Load(ctx)
}

// Quote calcula a prévia de uma aposta sem tocar no store
func (s *Service) Quote(totalWager, wagerA decimal.Decimal, baseOdds int, boostPct decimal.Decimal) (ledger.Quote, error) {
	return ledger.QuoteBet(totalWager, wagerA, baseOdds, boostPct)
}

func (s *Service) requireSportsbook(ctx context.Context, id string) error {
	books, err := s.store.ListSportsbooks(ctx)
	if err != nil {
		return storeErr("list sportsbooks", err)
	}
	for _, b := range books {
		if b.ID == id {
			return nil
		}
	}
	return fmt.Errorf("sportsbook %s: %w", id, ErrNotFound)
}

func withStatus(b ledger.Bet, st ledger.Status) ledger.Bet {
	b.Status = st
	return b
}

func betDetails(b ledger.Bet) map[string]any {
	return map[string]any{
		"bet_id":      b.ID,
		"description": b.Description,
		"sportsbook":  b.SportsbookName,
		"odds":        b.Odds(),
		"total_wager": b.TotalWager.StringFixed(2),
		"his_wager":   b.WagerA.StringFixed(2),
		"my_wager":    b.WagerB.StringFixed(2),
	}
}
