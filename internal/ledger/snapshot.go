package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BuildSnapshot tira a foto do estado atual para a data informada
func BuildSnapshot(books []Sportsbook, bets []Bet, date time.Time) Snapshot {
	balances := make(map[string]decimal.Decimal, len(books))
	for _, b := range books {
		balances[b.Name] = b.CurrentBalance
	}
	return Snapshot{
		Date:         date.Format(DateLayout),
		Cash:         SportsbookTotal(books),
		AtRisk:       AtRisk(bets),
		BookBalances: balances,
	}
}

// GrowthSummary compara o primeiro e o último snapshot
type GrowthSummary struct {
	From   string          `json:"from,omitempty"`
	To     string          `json:"to,omitempty"`
	Start  decimal.Decimal `json:"start"`
	End    decimal.Decimal `json:"end"`
	Change decimal.Decimal `json:"change"`
	Pct    float64         `json:"pct"`
}

// Growth ordena por data; sem snapshots devolve tudo zero
func Growth(snaps []Snapshot) GrowthSummary {
	if len(snaps) == 0 {
		return GrowthSummary{Start: decimal.Zero, End: decimal.Zero, Change: decimal.Zero}
	}
	sorted := make([]Snapshot, len(snaps))
	copy(sorted, snaps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	first, last := sorted[0], sorted[len(sorted)-1]
	g := GrowthSummary{
		From:  first.Date,
		To:    last.Date,
		Start: first.Value(),
		End:   last.Value(),
	}
	g.Change = g.End.Sub(g.Start)
	if !g.Start.IsZero() {
		g.Pct, _ = g.Change.Div(g.Start).Mul(hundred).Round(2).Float64()
	}
	return g
}
