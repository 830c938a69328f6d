// Package ws avisa a tela da psicóloga, via WebSocket, quando solicitações e consultas mudam.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/metrics"
	"go.uber.org/zap"
)

const (
	SolicitacaoCriada     = "solicitacao.criada"
	SolicitacaoAtualizada = "solicitacao.atualizada"
	SolicitacaoRemovida   = "solicitacao.removida"
	ConsultaCriada        = "consulta.criada"
	ConsultaAtualizada    = "consulta.atualizada"
	ConsultaRemovida      = "consulta.removida"
	PacienteCriado        = "paciente.criado"
	PacienteAtualizado    = "paciente.atualizado"
	PacienteRemovido      = "paciente.removido"
)

type Event struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Codigo string `json:"codigo,omitempty"`
}

// Publisher é o lado usado pelos handlers da API.
type Publisher interface {
	Publish(Event)
}

// Hub mantém os clientes conectados e distribui os eventos.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processa registros e broadcasts até ctx ser cancelado; então desconecta todos.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.count.Add(1)
			metrics.WSClientConnected()
			h.log.Debug("client registered", zap.Int64("clients", h.count.Load()))
		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// cliente lento
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
	metrics.WSClientDisconnected()
}

// Publish enfileira o evento sem bloquear; com a fila cheia o evento é descartado.
func (h *Hub) Publish(e Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.log.Warn("ws broadcast queue full, event dropped", zap.String("type", e.Type))
	}
}

// Clients retorna o número de conexões ativas.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Nop descarta eventos; usado quando não há hub (CLI, testes).
type Nop struct{}

func (Nop) Publish(Event) {}
