package events

import "time"

// Evento publicado no canal Redis após qualquer mutação bem sucedida.
// Os clientes WebSocket recarregam o estado ao receber.
type PoolChanged struct {
	Action string    `json:"action"`
	Entity string    `json:"entity,omitempty"` // id afetado
	Ts     time.Time `json:"ts"`
}
