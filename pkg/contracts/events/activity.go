package events

import "time"

// Evento publicado no tópico "pool_activity" a cada ação de um participante.
type Activity struct {
	ID       string         `json:"id"`
	ActorID  string         `json:"actor_id"`
	Action   string         `json:"action"` // ex: "bet_settled", "undo", "transaction_created"
	Details  map[string]any `json:"details,omitempty"`
	TsUnixMs int64          `json:"ts_unix_ms"`
}

// Time converte o timestamp do evento.
func (a Activity) Time() time.Time { return time.UnixMilli(a.TsUnixMs) }

// Ações conhecidas da trilha de auditoria
const (
	ActionSportsbookCreated = "sportsbook_created"
	ActionBalanceUpdated    = "balance_updated"
	ActionBalancesUpdated   = "balances_updated"
	ActionBetCreated        = "bet_created"
	ActionBetUpdated        = "bet_updated"
	ActionBetSettled        = "bet_settled"
	ActionBetDeleted        = "bet_deleted"
	ActionUndo              = "undo"
	ActionTransaction       = "transaction_created"
	ActionSnapshot          = "snapshot_recorded"
	ActionSettingUpdated    = "setting_updated"
)
