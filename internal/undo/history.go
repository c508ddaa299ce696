// Package undo guarda as últimas ações reversíveis (settle/delete) com janela de expiração.
package undo

import (
	"sync"
	"time"

	"github.com/radieske/bet-pool/internal/ledger"
)

type Kind string

const (
	KindSettle Kind = "settle"
	KindDelete Kind = "delete"
)

// Entry é uma ação reversível: Settle guarda o resultado aplicado,
// Delete guarda a aposta completa para restaurar.
type Entry struct {
	Kind   Kind          `json:"kind"`
	Bet    ledger.Bet    `json:"bet"`
	Result ledger.Status `json:"result,omitempty"`
}

func Settle(b ledger.Bet, result ledger.Status) Entry {
	return Entry{Kind: KindSettle, Bet: b, Result: result}
}

func Delete(b ledger.Bet) Entry {
	return Entry{Kind: KindDelete, Bet: b}
}

// History é uma pilha de capacidade fixa.
// Cada Push reinicia um único timer; quando expira a pilha é limpa.
type History struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	window   time.Duration
	timer    *time.Timer
	gen      uint64
}

func NewHistory(capacity int, window time.Duration) *History {
	if capacity <= 0 {
		capacity = 3
	}
	return &History{capacity: capacity, window: window, entries: make([]Entry, 0, capacity)}
}

// Push empilha a entrada descartando a mais antiga quando cheia
func (h *History) Push(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, e)
	h.resetTimerLocked()
}

// Peek devolve o topo sem remover
func (h *History) Peek() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Pop remove o topo e devolve a próxima entrada, se existir.
// Com entradas restantes a janela de expiração recomeça.
func (h *History) Pop() (popped Entry, next *Entry, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.entries)
	if n == 0 {
		return Entry{}, nil, false
	}
	popped = h.entries[n-1]
	h.entries = h.entries[:n-1]
	if n > 1 {
		nx := h.entries[n-2]
		next = &nx
		// undo conta como atividade: a próxima entrada ganha uma janela nova
		h.resetTimerLocked()
	} else {
		h.clearLocked()
	}
	return popped, next, true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear esvazia a pilha e cancela o timer
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked()
}

func (h *History) clearLocked() {
	h.entries = h.entries[:0]
	h.gen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *History) resetTimerLocked() {
	if h.window <= 0 {
		return
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.gen++
	gen := h.gen
	// timer antigo que já disparou não limpa pushes mais novos
	h.timer = time.AfterFunc(h.window, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.gen == gen {
			h.clearLocked()
		}
	})
}
