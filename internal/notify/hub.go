package notify

import (
	"callgate/backend/internal/config"
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ErrHubStopped is returned when publishing to a stopped hub.
var ErrHubStopped = errors.New("notify hub stopped")

// Hub owns the set of connected clients. All mutations happen on the Run goroutine.
type Hub struct {
	clients map[uint]map[string]Client

	registerCh   chan Client
	unregisterCh chan Client
	deliverCh    chan Event
	quit         chan struct{}

	connected atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[uint]map[string]Client),
		registerCh:   make(chan Client),
		unregisterCh: make(chan Client),
		deliverCh:    make(chan Event, config.EventBufferSize),
		quit:         make(chan struct{}),
	}
}

func (h *Hub) Register(c Client) {
	select {
	case h.registerCh <- c:
	case <-h.quit:
		c.Close()
	}
}

func (h *Hub) Unregister(c Client) {
	select {
	case h.unregisterCh <- c:
	case <-h.quit:
	}
}

// Publish queues ev for local delivery.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	select {
	case h.deliverCh <- ev:
		return nil
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected returns the number of registered connections.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

func (h *Hub) Stop() {
	close(h.quit)
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for userID, conns := range h.clients {
				for _, c := range conns {
					c.Close()
				}
				delete(h.clients, userID)
			}
			h.connected.Store(0)
			log.Info().Msg("Notify hub stopped")
			return

		case c := <-h.registerCh:
			conns, ok := h.clients[c.GetUserID()]
			if !ok {
				conns = make(map[string]Client)
				h.clients[c.GetUserID()] = conns
			}
			conns[c.GetID()] = c
			h.connected.Add(1)
			log.Debug().Uint("user_id", c.GetUserID()).Str("client_id", c.GetID()).Msg("Client connected")

		case c := <-h.unregisterCh:
			h.remove(c)

		case ev := <-h.deliverCh:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	for _, userID := range ev.To {
		for _, c := range h.clients[userID] {
			select {
			case c.GetSendChannel() <- ev:
			default:
				log.Warn().Uint("user_id", userID).Str("client_id", c.GetID()).Msg("Client too slow, dropping connection")
				h.remove(c)
			}
		}
	}
}

func (h *Hub) remove(c Client) {
	conns, ok := h.clients[c.GetUserID()]
	if !ok {
		return
	}
	if _, ok := conns[c.GetID()]; !ok {
		return
	}
	delete(conns, c.GetID())
	if len(conns) == 0 {
		delete(h.clients, c.GetUserID())
	}
	h.connected.Add(-1)
	c.Close()
	log.Debug().Uint("user_id", c.GetUserID()).Str("client_id", c.GetID()).Msg("Client disconnected")
}
