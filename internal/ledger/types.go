// Package ledger implementa o motor de equity do pool: matemática de odds,
// agregação de pool/bucket, equity e estatísticas por participante e P&L por janela.
// Todas as funções são puras e operam sobre snapshots em memória das coleções.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status de uma aposta
type Status string

const (
	StatusPending Status = "pending"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
	StatusPush    Status = "push"
)

// Settled indica se o status é um resultado final (won/lost/push)
func (s Status) Settled() bool {
	return s == StatusWon || s == StatusLost || s == StatusPush
}

// Valid aceita apenas os quatro status conhecidos
func (s Status) Valid() bool { return s == StatusPending || s.Settled() }

// TxType é o tipo de movimentação de dinheiro
type TxType string

const (
	TxDeposit      TxType = "deposit"      // participante -> sportsbook
	TxWithdrawal   TxType = "withdrawal"   // sportsbook -> bucket
	TxDisbursement TxType = "disbursement" // bucket -> participante
)

// Person identifica um dos dois participantes.
// A tem equity calculada diretamente; B recebe o residual.
type Person string

const (
	PersonA Person = "a"
	PersonB Person = "b"
)

func (p Person) Valid() bool { return p == PersonA || p == PersonB }

// Sportsbook guarda o saldo informado manualmente (não derivado)
type Sportsbook struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Bet é uma aposta conjunta ou individual.
// WagerA + WagerB == TotalWager (tolerância WagerTolerance).
type Bet struct {
	ID             string          `json:"id"`
	SportsbookID   string          `json:"sportsbook_id"`
	SportsbookName string          `json:"sportsbook_name,omitempty"`
	Sport          string          `json:"sport"`
	Description    string          `json:"description"`
	BaseOdds       int             `json:"base_odds"`
	BoostPct       decimal.Decimal `json:"boost_pct"`
	TotalWager     decimal.Decimal `json:"total_wager"`
	WagerA         decimal.Decimal `json:"his_wager"`
	WagerB         decimal.Decimal `json:"my_wager"`
	Status         Status          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	PlacedAt       time.Time       `json:"placed_at"`
	SettledAt      *time.Time      `json:"settled_at"`
}

// Odds devolve as odds já com boost aplicado
func (b Bet) Odds() int { return BoostedOdds(b.BaseOdds, b.BoostPct) }

// Wager devolve a parte da aposta de um participante
func (b Bet) Wager(p Person) decimal.Decimal {
	if p == PersonA {
		return b.WagerA
	}
	return b.WagerB
}

// Transaction é uma entrada imutável do livro (append-only).
// SportsbookID vazio para disbursement.
type Transaction struct {
	ID             string          `json:"id"`
	Type           TxType          `json:"type"`
	Person         Person          `json:"person"`
	SportsbookID   string          `json:"sportsbook_id,omitempty"`
	SportsbookName string          `json:"sportsbook_name,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Snapshot é a foto diária usada apenas para gráficos históricos
type Snapshot struct {
	Date         string                     `json:"snapshot_date"` // YYYY-MM-DD, chave única
	Cash         decimal.Decimal            `json:"cash"`
	AtRisk       decimal.Decimal            `json:"at_risk"`
	BookBalances map[string]decimal.Decimal `json:"book_balances"`
}

// Value é o total registrado na data (caixa + em risco)
func (s Snapshot) Value() decimal.Decimal { return s.Cash.Add(s.AtRisk) }

// DateLayout é o formato da chave de snapshot
const DateLayout = "2006-01-02"
