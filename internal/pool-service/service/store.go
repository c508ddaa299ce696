package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/pkg/contracts/events"
)

// Store é o armazenamento externo do pool (fonte da verdade)
type Store interface {
	ListSportsbooks(ctx context.Context) ([]ledger.Sportsbook, error)
	CreateSportsbook(ctx context.Context, name string, balance decimal.Decimal) (ledger.Sportsbook, error)
	UpdateSportsbookBalance(ctx context.Context, id string, balance decimal.Decimal) error

	ListBets(ctx context.Context) ([]ledger.Bet, error)
	GetBet(ctx context.Context, id string) (ledger.Bet, error)
	CreateBet(ctx context.Context, b ledger.Bet) (ledger.Bet, error)
	UpdateBet(ctx context.Context, b ledger.Bet) error
	DeleteBet(ctx context.Context, id string) error
	SettleBet(ctx context.Context, id string, status ledger.Status, at time.Time) error
	UnsettleBet(ctx context.Context, id string) error
	RestoreBet(ctx context.Context, b ledger.Bet) error

	ListTransactions(ctx context.Context) ([]ledger.Transaction, error)
	CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)

	ListSnapshots(ctx context.Context) ([]ledger.Snapshot, error)
	UpsertSnapshot(ctx context.Context, s ledger.Snapshot) error

	GetSettings(ctx context.Context) (map[string]string, error)
	UpdateSetting(ctx context.Context, key, value string) error

	LogActivity(ctx context.Context, a events.Activity) error
	ListActivity(ctx context.Context, limit int) ([]events.Activity, error)
}

var (
	ErrStore         = errors.New("store failure")
	ErrNotFound      = errors.New("not found")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNotPending    = errors.New("bet is not pending")
)

// storeErr marca a falha como erro do store mantendo a causa original (errors.Is nos dois)
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// PartialUpdateError indica que um update em várias etapas parou no meio.
// Etapas já aplicadas não são desfeitas.
type PartialUpdateError struct {
	Applied int
	Total   int
	Err     error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("partial update: %d of %d applied: %v", e.Applied, e.Total, e.Err)
}

func (e *PartialUpdateError) Unwrap() error { return e.Err }
