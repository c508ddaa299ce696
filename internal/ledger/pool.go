package ledger

import "github.com/shopspring/decimal"

// SportsbookTotal soma os saldos atuais de todas as casas
func SportsbookTotal(books []Sportsbook) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range books {
		sum = sum.Add(b.CurrentBalance)
	}
	return sum
}

// BucketBalance é o caixa fora das casas: sacado e ainda não repassado.
// Pode ficar negativo se os dados forem inconsistentes; não é clampado.
func BucketBalance(txs []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case TxWithdrawal:
			sum = sum.Add(t.Amount)
		case TxDisbursement:
			sum = sum.Sub(t.Amount)
		}
	}
	return sum
}

// TotalPool = saldos das casas + bucket
func TotalPool(books []Sportsbook, txs []Transaction) decimal.Decimal {
	return SportsbookTotal(books).Add(BucketBalance(txs))
}

// AtRisk soma as stakes totais das apostas pendentes
func AtRisk(bets []Bet) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range bets {
		if b.Status == StatusPending {
			sum = sum.Add(b.TotalWager)
		}
	}
	return sum
}
