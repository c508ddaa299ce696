package ledger

import "github.com/shopspring/decimal"

// PersonStats resume a participação de alguém no pool
type PersonStats struct {
	Deposited  decimal.Decimal `json:"deposited"`
	Received   decimal.Decimal `json:"received"`
	SharedPnl  decimal.Decimal `json:"shared_pnl"`
	SharedWon  int             `json:"shared_won"`
	SharedLost int             `json:"shared_lost"`
	Pending    decimal.Decimal `json:"pending"`
}

// WinRate = won / (won + lost); 0 sem apostas liquidadas
func (s PersonStats) WinRate() float64 {
	n := s.SharedWon + s.SharedLost
	if n == 0 {
		return 0
	}
	return float64(s.SharedWon) / float64(n)
}

// Stats calcula os números de um participante.
// SharedPnl segue a mesma política da equity (pending conta como perda);
// contagens consideram só liquidadas e ignoram apostas sem stake dele.
func Stats(txs []Transaction, bets []Bet, p Person) PersonStats {
	s := PersonStats{
		Deposited: decimal.Zero,
		Received:  decimal.Zero,
		SharedPnl: decimal.Zero,
		Pending:   decimal.Zero,
	}

	for _, t := range txs {
		if t.Person != p {
			continue
		}
		switch t.Type {
		case TxDeposit:
			s.Deposited = s.Deposited.Add(t.Amount)
		case TxDisbursement:
			s.Received = s.Received.Add(t.Amount)
		}
	}

	for _, b := range bets {
		stake := b.Wager(p)
		if stake.IsZero() { // aposta só do parceiro não entra nas contagens desta pessoa
			continue
		}
		switch b.Status {
		case StatusPending:
			s.Pending = s.Pending.Add(stake)
			s.SharedPnl = s.SharedPnl.Sub(stake)
		case StatusWon:
			s.SharedWon++
			s.SharedPnl = s.SharedPnl.Add(stakeNet(b, p))
		case StatusLost:
			s.SharedLost++
			s.SharedPnl = s.SharedPnl.Sub(stake)
		}
	}
	return s
}
