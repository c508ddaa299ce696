package ledger

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// BoostedOdds aumenta as odds americanas em boostPct% da própria magnitude.
// +200 com 20% -> +240; -110 com 20% -> -88. Boost zero (ou odds 0) é identidade.
func BoostedOdds(baseOdds int, boostPct decimal.Decimal) int {
	if boostPct.IsZero() || baseOdds == 0 {
		return baseOdds
	}
	abs := int64(baseOdds)
	if abs < 0 {
		abs = -abs
	}
	bump := decimal.NewFromInt(abs).Mul(boostPct).Div(hundred).Round(0)
	return baseOdds + int(bump.IntPart())
}

// TotalReturn é o pagamento incluindo a stake.
// odds 0 significa "sem odds registradas": devolve só a stake.
func TotalReturn(wager decimal.Decimal, odds int) decimal.Decimal {
	switch {
	case odds > 0:
		return wager.Add(wager.Mul(decimal.NewFromInt(int64(odds))).Div(hundred))
	case odds < 0:
		return wager.Add(wager.Mul(hundred).Div(decimal.NewFromInt(int64(-odds))))
	default:
		return wager
	}
}

// SplitReturn divide o retorno proporcionalmente à stake do participante.
// totalWager zero é violação de invariante (wagers já validados) e causa panic.
func SplitReturn(totalReturn, totalWager, partnerWager decimal.Decimal) decimal.Decimal {
	if totalWager.IsZero() {
		panic("ledger: split return with zero total wager")
	}
	return totalReturn.Mul(partnerWager).Div(totalWager)
}

// SplitReturns divide o retorno entre A e B.
// Quando as stakes fecham o total, B recebe o resto: a + b == totalReturn exatamente.
func SplitReturns(totalReturn, totalWager, wagerA, wagerB decimal.Decimal) (a, b decimal.Decimal) {
	a = SplitReturn(totalReturn, totalWager, wagerA)
	if wagerA.Add(wagerB).Equal(totalWager) {
		return a, totalReturn.Sub(a)
	}
	return a, SplitReturn(totalReturn, totalWager, wagerB)
}

// Quote é a prévia de uma aposta antes de salvar
type Quote struct {
	WagerB      decimal.Decimal `json:"my_wager"`
	BoostedOdds int             `json:"boosted_odds"`
	TotalReturn decimal.Decimal `json:"total_return"`
	ReturnA     decimal.Decimal `json:"his_return"`
	ReturnB     decimal.Decimal `json:"my_return"`
}

// QuoteBet calcula a parte de B e os retornos "se ganhar" de cada participante
func QuoteBet(totalWager, wagerA decimal.Decimal, baseOdds int, boostPct decimal.Decimal) (Quote, error) {
	if !totalWager.IsPositive() {
		return Quote{}, invalidBet("total wager must be positive")
	}
	if wagerA.IsNegative() || wagerA.GreaterThan(totalWager) {
		return Quote{}, invalidBet("his wager must be between 0 and total")
	}
	if boostPct.IsNegative() {
		return Quote{}, invalidBet("boost must be >= 0")
	}

	wagerB := totalWager.Sub(wagerA).Round(2)
	boosted := BoostedOdds(baseOdds, boostPct)
	total := TotalReturn(totalWager, boosted)
	returnA, returnB := SplitReturns(total, totalWager, wagerA, wagerB)

	return Quote{
		WagerB:      wagerB,
		BoostedOdds: boosted,
		TotalReturn: total,
		ReturnA:     returnA,
		ReturnB:     returnB,
	}, nil
}
