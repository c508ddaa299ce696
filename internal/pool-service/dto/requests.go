package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/internal/pool-service/service"
)

type CreateSportsbookRequest struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"current_balance"`
}

type UpdateBalanceRequest struct {
	Balance decimal.Decimal `json:"current_balance"`
}

type UpdateBalancesRequest struct {
	Balances []service.BalanceUpdate `json:"balances"`
}

// BetRequest serve para criar e editar; my_wager omitido vale total - his_wager
type BetRequest struct {
	SportsbookID string           `json:"sportsbook_id"`
	Sport        string           `json:"sport"`
	Description  string           `json:"description"`
	BaseOdds     int              `json:"base_odds"`
	BoostPct     decimal.Decimal  `json:"boost_pct"`
	TotalWager   decimal.Decimal  `json:"total_wager"`
	HisWager     decimal.Decimal  `json:"his_wager"`
	MyWager      *decimal.Decimal `json:"my_wager,omitempty"`
	Notes        string           `json:"notes"`
	PlacedAt     *time.Time       `json:"placed_at,omitempty"`
}

func (r BetRequest) Bet() ledger.Bet {
	my := r.TotalWager.Sub(r.HisWager).Round(2)
	if r.MyWager != nil {
		my = *r.MyWager
	}
	b := ledger.Bet{
		SportsbookID: r.SportsbookID,
		Sport:        r.Sport,
		Description:  r.Description,
		BaseOdds:     r.BaseOdds,
		BoostPct:     r.BoostPct,
		TotalWager:   r.TotalWager,
		WagerA:       r.HisWager,
		WagerB:       my,
		Notes:        r.Notes,
	}
	if r.PlacedAt != nil {
		b.PlacedAt = *r.PlacedAt
	}
	return b
}

type QuoteRequest struct {
	TotalWager decimal.Decimal `json:"total_wager"`
	HisWager   decimal.Decimal `json:"his_wager"`
	BaseOdds   int             `json:"base_odds"`
	BoostPct   decimal.Decimal `json:"boost_pct"`
}

type SettleRequest struct {
	Result ledger.Status `json:"result"` // won | lost | push
}

type TransactionRequest struct {
	Type         ledger.TxType   `json:"type"`
	Person       ledger.Person   `json:"person"`
	SportsbookID string          `json:"sportsbook_id"`
	Amount       decimal.Decimal `json:"amount"`
	Notes        string          `json:"notes"`
}

func (r TransactionRequest) Transaction() ledger.Transaction {
	return ledger.Transaction{
		Type:         r.Type,
		Person:       r.Person,
		SportsbookID: r.SportsbookID,
		Amount:       r.Amount,
		Notes:        r.Notes,
	}
}

type SettingRequest struct {
	Value string `json:"value"`
}

type PinRequest struct {
	Pin string `json:"pin"`
}
