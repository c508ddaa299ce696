package dto

import (
	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/internal/undo"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Applied *int   `json:"applied,omitempty"` // só em update parcial
	Total   *int   `json:"total,omitempty"`
}

type UndoStatusResponse struct {
	Available bool        `json:"available"`
	Depth     int         `json:"depth"`
	Next      *undo.Entry `json:"next,omitempty"`
}

type PinResponse struct {
	Actor ledger.Person `json:"actor"`
}
