package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bet-pool/pkg/contracts/events"
)

// ClientMsg é o que o cliente pode mandar: só ping por enquanto
type ClientMsg struct {
	Type string `json:"type"` // ping
}

// ServerMsg é enviado para todos os clientes quando o pool muda
type ServerMsg struct {
	Type   string              `json:"type"` // pool_changed | pong
	Change *events.PoolChanged `json:"change,omitempty"`
}

const writeWait = 2 * time.Second

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla não aceita escritas concorrentes na mesma conexão
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub mantém as conexões abertas; toda mudança vai para todos
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

// NewHub cria o hub com política de origem customizada (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		clients:  make(map[*client]struct{}),
	}
}

// HandleWS registra a conexão e responde pings até o cliente desconectar
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			b, _ := json.Marshal(ServerMsg{Type: "pong"})
			if err := c.write(b); err != nil {
				return
			}
		}
	}
}

// Clients devolve o número de conexões abertas
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast envia a mudança para todos os clientes conectados
func (h *Hub) Broadcast(ev events.PoolChanged) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	b, _ := json.Marshal(ServerMsg{Type: "pool_changed", Change: &ev})
	for _, c := range clients {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}
