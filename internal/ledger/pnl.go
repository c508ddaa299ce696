package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetPnl é o resultado do pool numa aposta liquidada (push/pending = 0)
func BetPnl(b Bet) decimal.Decimal {
	switch b.Status {
	case StatusWon:
		return TotalReturn(b.TotalWager, b.Odds()).Sub(b.TotalWager)
	case StatusLost:
		return b.TotalWager.Neg()
	default:
		return decimal.Zero
	}
}

// PoolBetPnl soma BetPnl sobre o conjunto
func PoolBetPnl(bets []Bet) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range bets {
		sum = sum.Add(BetPnl(b))
	}
	return sum
}

// StartOfDay devolve a meia-noite local (no fuso de t)
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// settledBetween filtra apostas com settled_at em [from, to)
func settledBetween(bets []Bet, from, to time.Time) []Bet {
	out := make([]Bet, 0)
	for _, b := range bets {
		if b.SettledAt == nil || !b.Status.Settled() {
			continue
		}
		if b.SettledAt.Before(from) || !b.SettledAt.Before(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// RollingPnl considera apostas liquidadas entre (meia-noite de hoje - days) e now
func RollingPnl(bets []Bet, days int, now time.Time) decimal.Decimal {
	cutoff := StartOfDay(now).AddDate(0, 0, -days)
	// now inclusivo
	return PoolBetPnl(settledBetween(bets, cutoff, now.Add(time.Nanosecond)))
}

// DayPnl é um ponto do breakdown diário
type DayPnl struct {
	DaysAgo int             `json:"days_ago"`
	Date    string          `json:"date"`
	Pnl     decimal.Decimal `json:"pnl"`
	Settled int             `json:"settled"`
}

// DailyPnl devolve o P&L das apostas liquidadas exatamente daysAgo dias atrás
func DailyPnl(bets []Bet, daysAgo int, now time.Time) DayPnl {
	start := StartOfDay(now).AddDate(0, 0, -daysAgo)
	end := start.AddDate(0, 0, 1)
	day := settledBetween(bets, start, end)
	return DayPnl{
		DaysAgo: daysAgo,
		Date:    start.Format(DateLayout),
		Pnl:     PoolBetPnl(day),
		Settled: len(day),
	}
}

// DailySeries monta os últimos n dias, do mais antigo para hoje
func DailySeries(bets []Bet, n int, now time.Time) []DayPnl {
	out := make([]DayPnl, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, DailyPnl(bets, i, now))
	}
	return out
}
