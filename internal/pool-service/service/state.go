package service

import (
	"time"

	"github.com/radieske/bet-pool/internal/ledger"
)

// State é a visão completa e autoritativa do pool num instante.
// É recarregada inteira após cada mutação; nunca é alterada localmente.
type State struct {
	Sportsbooks  []ledger.Sportsbook  `json:"sportsbooks"`
	Bets         []ledger.Bet         `json:"bets"`
	Transactions []ledger.Transaction `json:"transactions"`
	Snapshots    []ledger.Snapshot    `json:"snapshots"`
	Settings     map[string]string    `json:"settings"`
	LoadedAt     time.Time            `json:"loaded_at"`
}

// Bet procura uma aposta pelo id
func (s State) Bet(id string) (ledger.Bet, bool) {
	for _, b := range s.Bets {
		if b.ID == id {
			return b, true
		}
	}
	return ledger.Bet{}, false
}

// Sportsbook procura uma casa pelo id
func (s State) Sportsbook(id string) (ledger.Sportsbook, bool) {
	for _, sb := range s.Sportsbooks {
		if sb.ID == id {
			return sb, true
		}
	}
	return ledger.Sportsbook{}, false
}

// Filtros de lista de apostas
const (
	FilterAll     = "all"
	FilterPending = "pending"
	FilterWon     = "won"
	FilterLost    = "lost"
	FilterPush    = "push"
)

// ValidFilter aceita "" como all
func ValidFilter(f string) bool {
	switch f {
	case "", FilterAll, FilterPending, FilterWon, FilterLost, FilterPush:
		return true
	}
	return false
}

// FilterBets mantém a ordem do store (placed_at desc)
func FilterBets(s State, filter string) []ledger.Bet {
	out := make([]ledger.Bet, 0, len(s.Bets))
	for _, b := range s.Bets {
		if filter == "" || filter == FilterAll || string(b.Status) == filter {
			out = append(out, b)
		}
	}
	return out
}
