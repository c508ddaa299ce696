package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidBet         = errors.New("invalid bet")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// WagerTolerance é a folga de arredondamento aceita em WagerA + WagerB == TotalWager
var WagerTolerance = decimal.RequireFromString("0.02")

func invalidBet(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidBet, msg) }

func invalidTx(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidTransaction, msg) }

// ValidateBet checa os campos obrigatórios e a soma das stakes
func ValidateBet(b Bet) error {
	if strings.TrimSpace(b.SportsbookID) == "" {
		return invalidBet("sportsbook is required")
	}
	if strings.TrimSpace(b.Description) == "" {
		return invalidBet("description is required")
	}
	if !b.TotalWager.IsPositive() {
		return invalidBet("total wager must be positive")
	}
	if b.WagerA.IsNegative() || b.WagerB.IsNegative() {
		return invalidBet("wagers must be >= 0")
	}
	if b.BoostPct.IsNegative() {
		return invalidBet("boost must be >= 0")
	}
	sum := b.WagerA.Add(b.WagerB)
	if sum.Sub(b.TotalWager).Abs().GreaterThan(WagerTolerance) {
		return invalidBet(fmt.Sprintf("wager split %s + %s does not match total %s",
			b.WagerA.StringFixed(2), b.WagerB.StringFixed(2), b.TotalWager.StringFixed(2)))
	}
	if b.Status != "" && !b.Status.Valid() {
		return invalidBet(fmt.Sprintf("unknown status %q", b.Status))
	}
	return nil
}

// ValidateResult aceita apenas resultados finais
func ValidateResult(s Status) error {
	if !s.Settled() {
		return invalidBet(fmt.Sprintf("result must be won, lost or push, got %q", s))
	}
	return nil
}

// NormalizeTransaction limpa os campos e fixa person=a em withdrawal (ignorado no cálculo)
func NormalizeTransaction(tx Transaction) Transaction {
	tx.SportsbookID = strings.TrimSpace(tx.SportsbookID)
	tx.Notes = strings.TrimSpace(tx.Notes)
	if tx.Type == TxWithdrawal {
		tx.Person = PersonA
	}
	return tx
}

// ValidateTransaction aplica as regras por tipo.
// deposit/withdrawal exigem sportsbook; disbursement nunca tem sportsbook.
func ValidateTransaction(tx Transaction) error {
	if !tx.Amount.IsPositive() {
		return invalidTx("amount must be positive")
	}
	if !tx.Person.Valid() {
		return invalidTx(fmt.Sprintf("unknown person %q", tx.Person))
	}
	switch tx.Type {
	case TxDeposit, TxWithdrawal:
		if strings.TrimSpace(tx.SportsbookID) == "" {
			return invalidTx(string(tx.Type) + " requires a sportsbook")
		}
	case TxDisbursement:
		if tx.SportsbookID != "" {
			return invalidTx("disbursement cannot reference a sportsbook")
		}
	default:
		return invalidTx(fmt.Sprintf("unknown type %q", tx.Type))
	}
	return nil
}
