package ledger

import "github.com/shopspring/decimal"

// stakeNet é o P&L de um participante numa aposta.
// pending conta como perda (stake fora do pool até liquidar); push é neutro.
func stakeNet(b Bet, p Person) decimal.Decimal {
	stake := b.Wager(p)
	if stake.IsZero() {
		return decimal.Zero
	}
	switch b.Status {
	case StatusWon:
		retA, retB := SplitReturns(TotalReturn(b.TotalWager, b.Odds()), b.TotalWager, b.WagerA, b.WagerB)
		if p == PersonA {
			return retA.Sub(stake)
		}
		return retB.Sub(stake)
	case StatusLost, StatusPending:
		return stake.Neg()
	default:
		return decimal.Zero
	}
}

// EquityA é calculada diretamente: depósitos - repasses + P&L das stakes de A
func EquityA(txs []Transaction, bets []Bet) decimal.Decimal {
	eq := decimal.Zero
	for _, t := range txs {
		if t.Person != PersonA {
			continue
		}
		switch t.Type {
		case TxDeposit:
			eq = eq.Add(t.Amount)
		case TxDisbursement:
			eq = eq.Sub(t.Amount)
		}
	}
	for _, b := range bets {
		eq = eq.Add(stakeNet(b, PersonA))
	}
	return eq
}

// EquityB é o residual: absorve apostas solo de B e divergências de saldo
func EquityB(totalPool, equityA decimal.Decimal) decimal.Decimal {
	return totalPool.Sub(equityA)
}

// Equity devolve o par (A, B); A + B == TotalPool por construção
func Equity(books []Sportsbook, txs []Transaction, bets []Bet) (a, b decimal.Decimal) {
	a = EquityA(txs, bets)
	return a, EquityB(TotalPool(books, txs), a)
}

// PendingExposure soma as stakes pendentes do participante
func PendingExposure(bets []Bet, p Person) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range bets {
		if b.Status == StatusPending {
			sum = sum.Add(b.Wager(p))
		}
	}
	return sum
}
