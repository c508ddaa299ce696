// Package notify avisa os participantes no Telegram sobre ações sensíveis do pool.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/pkg/contracts/events"
)

// Sender é o pedaço do BotAPI que usamos
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram manda uma mensagem para o chat configurado quando a ação merece aviso
type Telegram struct {
	Bot    Sender
	ChatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{Bot: bot, ChatID: chatID}, nil
}

func (t *Telegram) Notify(ctx context.Context, a events.Activity) error {
	text, ok := Message(a)
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.Bot.Send(tgbotapi.NewMessage(t.ChatID, text))
	return err
}

// Message monta o texto do aviso; só bet_settled, bet_deleted e undo geram mensagem
func Message(a events.Activity) (string, bool) {
	desc := detail(a, "description")
	var b strings.Builder
	switch a.Action {
	case events.ActionBetSettled:
		fmt.Fprintf(&b, "%s settled %q as %s", a.ActorID, desc, strings.ToUpper(detail(a, "result")))
		if odds, ok := a.Details["odds"].(float64); ok {
			fmt.Fprintf(&b, " (%s)", ledger.FormatOdds(int(odds)))
		}
		if pnl, ok := money(a, "pnl"); ok {
			fmt.Fprintf(&b, ", P&L %s", pnl)
		}
	case events.ActionBetDeleted:
		fmt.Fprintf(&b, "%s deleted %q", a.ActorID, desc)
		if total, ok := money(a, "total_wager"); ok {
			fmt.Fprintf(&b, " (%s)", total)
		}
	case events.ActionUndo:
		fmt.Fprintf(&b, "%s undid %s of %q", a.ActorID, detail(a, "kind"), desc)
	default:
		return "", false
	}
	if book := detail(a, "sportsbook"); book != "" {
		fmt.Fprintf(&b, " @ %s", book)
	}
	return b.String(), true
}

func detail(a events.Activity, key string) string {
	if v, ok := a.Details[key].(string); ok {
		return v
	}
	return ""
}

func money(a events.Activity, key string) (string, bool) {
	d, err := decimal.NewFromString(detail(a, key))
	if err != nil {
		return "", false
	}
	return ledger.FormatMoney(d), true
}
