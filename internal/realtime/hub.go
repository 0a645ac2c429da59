// Package realtime pushes portfolio updates to websocket subscribers.
// Clients join per-address rooms; the reconciliation engine publishes into
// them after each successful sync.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/defi-dashboard/internal/logging"
	"github.com/defi-dashboard/internal/models"
	"github.com/defi-dashboard/internal/types"
)

// ServerMessage is the envelope pushed to subscribed clients
type ServerMessage struct {
	Event   string      `json:"event"`
	Address string      `json:"address"`
	Data    interface{} `json:"data,omitempty"`
}

// Events pushed to rooms
const (
	EventPortfolioUpdated   = "portfolio_updated"
	EventTransactionsSynced = "transactions_synced"
)

type roomMessage struct {
	room    string
	payload []byte
}

// Hub tracks websocket clients and the address rooms they joined.
// All room state is owned by the Run goroutine; other goroutines communicate
// through channels only.
type Hub struct {
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	broadcast  chan roomMessage
	logger     *logging.Logger
}

type joinRequest struct {
	client *Client
	room   string
}

// NewHub creates a hub with no rooms
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		broadcast:  make(chan roomMessage, 64),
		logger:     logging.GetGlobalLogger().WithField("component", "realtime"),
	}
}

// Run owns the room state until the context is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.logger.WithField("client", client.id).Debug("Client connected")

		case client := <-h.unregister:
			h.removeClient(client)

		case req := <-h.join:
			h.joinRoom(req.client, req.room)

		case msg := <-h.broadcast:
			h.deliver(msg.room, msg.payload)
		}
	}
}

// PortfolioUpdated publishes a fresh account snapshot to the address's room
func (h *Hub) PortfolioUpdated(address string, account *models.Account) {
	h.publish(address, ServerMessage{
		Event:   EventPortfolioUpdated,
		Address: types.NormalizeAddress(address),
		Data:    account,
	})
}

// TransactionsSynced announces a completed sync to the address's room
func (h *Hub) TransactionsSynced(address string, count int) {
	h.publish(address, ServerMessage{
		Event:   EventTransactionsSynced,
		Address: types.NormalizeAddress(address),
		Data:    map[string]int{"transactionsSynced": count},
	})
}

// publish serializes and enqueues a room broadcast without blocking the caller
func (h *Hub) publish(address string, msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal realtime message")
		return
	}

	select {
	case h.broadcast <- roomMessage{room: types.NormalizeAddress(address), payload: payload}:
	default:
		h.logger.WithField("address", address).Warn("Broadcast queue full, dropping realtime message")
	}
}

func (h *Hub) joinRoom(client *Client, room string) {
	room = types.NormalizeAddress(room)

	if client.room != "" && client.room != room {
		h.leaveRoom(client)
	}

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.room = room

	h.logger.WithFields(map[string]interface{}{
		"client": client.id,
		"room":   room,
	}).Debug("Client joined room")
}

func (h *Hub) leaveRoom(client *Client) {
	if client.room == "" {
		return
	}
	if members, ok := h.rooms[client.room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, client.room)
		}
	}
	client.room = ""
}

func (h *Hub) removeClient(client *Client) {
	h.leaveRoom(client)
	client.closeSend()
	h.logger.WithField("client", client.id).Debug("Client disconnected")
}

func (h *Hub) deliver(room string, payload []byte) {
	for client := range h.rooms[room] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; drop it rather than stall the room
			h.removeClient(client)
		}
	}
}

func (h *Hub) closeAll() {
	for _, members := range h.rooms {
		for client := range members {
			client.closeSend()
		}
	}
	h.rooms = make(map[string]map[*Client]struct{})
}
