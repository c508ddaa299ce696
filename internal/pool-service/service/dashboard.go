package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-pool/internal/ledger"
)

// Chaves de settings usadas pelo dashboard e pelo gateway
const (
	SettingNameA           = "name_a"
	SettingNameB           = "name_b"
	SettingPinA            = "pin_a"
	SettingPinB            = "pin_b"
	SettingLastBooksUpdate = "last_books_update"
)

type Names struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Dashboard é o read model da tela principal
type Dashboard struct {
	TotalPool       decimal.Decimal      `json:"total_pool"`
	SportsbookTotal decimal.Decimal      `json:"sportsbook_total"`
	Bucket          decimal.Decimal      `json:"bucket"`
	EquityA         decimal.Decimal      `json:"equity_a"`
	EquityB         decimal.Decimal      `json:"equity_b"`
	PendingA        decimal.Decimal      `json:"pending_a"`
	PendingB        decimal.Decimal      `json:"pending_b"`
	AtRisk          decimal.Decimal      `json:"at_risk"`
	StatsA          ledger.PersonStats   `json:"stats_a"`
	StatsB          ledger.PersonStats   `json:"stats_b"`
	WinRateA        float64              `json:"win_rate_a"`
	WinRateB        float64              `json:"win_rate_b"`
	PoolPnl         decimal.Decimal      `json:"pool_pnl"`
	Rolling7        decimal.Decimal      `json:"rolling_7d"`
	Rolling30       decimal.Decimal      `json:"rolling_30d"`
	Daily           []ledger.DayPnl      `json:"daily"`
	Growth          ledger.GrowthSummary `json:"growth"`
	OpenBets        []ledger.Bet         `json:"open_bets"`
	Books           []ledger.Sportsbook  `json:"books"`
	Names           Names                `json:"names"`
	LastBooksUpdate string               `json:"last_books_update,omitempty"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// BuildDashboard deriva todos os números a partir de um State (função pura).
// now define o fuso da meia-noite usada nas janelas.
func BuildDashboard(st State, now time.Time) Dashboard {
	equityA, equityB := ledger.Equity(st.Sportsbooks, st.Transactions, st.Bets)
	statsA := ledger.Stats(st.Transactions, st.Bets, ledger.PersonA)
	statsB := ledger.Stats(st.Transactions, st.Bets, ledger.PersonB)

	books := st.Sportsbooks
	if books == nil {
		books = []ledger.Sportsbook{}
	}

	return Dashboard{
		TotalPool:       ledger.TotalPool(st.Sportsbooks, st.Transactions),
		SportsbookTotal: ledger.SportsbookTotal(st.Sportsbooks),
		Bucket:          ledger.BucketBalance(st.Transactions),
		EquityA:         equityA,
		EquityB:         equityB,
		PendingA:        ledger.PendingExposure(st.Bets, ledger.PersonA),
		PendingB:        ledger.PendingExposure(st.Bets, ledger.PersonB),
		AtRisk:          ledger.AtRisk(st.Bets),
		StatsA:          statsA,
		StatsB:          statsB,
		WinRateA:        statsA.WinRate(),
		WinRateB:        statsB.WinRate(),
		PoolPnl:         ledger.PoolBetPnl(st.Bets),
		Rolling7:        ledger.RollingPnl(st.Bets, 7, now),
		Rolling30:       ledger.RollingPnl(st.Bets, 30, now),
		Daily:           ledger.DailySeries(st.Bets, 7, now),
		Growth:          ledger.Growth(st.Snapshots),
		OpenBets:        FilterBets(st, FilterPending),
		Books:           books,
		Names:           names(st.Settings),
		LastBooksUpdate: st.Settings[SettingLastBooksUpdate],
		GeneratedAt:     now,
	}
}

func names(settings map[string]string) Names {
	n := Names{A: "A", B: "B"}
	if v := settings[SettingNameA]; v != "" {
		n.A = v
	}
	if v := settings[SettingNameB]; v != "" {
		n.B = v
	}
	return n
}
