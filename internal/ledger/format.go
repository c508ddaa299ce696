package ledger

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney formata em dólar com separador de milhar: $1,234.50 / -$5.00
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	sign := ""
	if d.Round(2).IsNegative() {
		sign = "-"
	}
	return sign + "$" + b.String() + frac
}

// FormatOdds mostra odds americanas com sinal explícito
func FormatOdds(odds int) string {
	if odds > 0 {
		return "+" + strconv.Itoa(odds)
	}
	return strconv.Itoa(odds)
}
