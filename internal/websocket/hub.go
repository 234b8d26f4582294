package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

// Message types
const (
	MessageTypeStandingsUpdate = "standings_update"
	MessageTypeSubscribe       = "subscribe"
	MessageTypeUnsubscribe     = "unsubscribe"
	MessageTypeSubscribed      = "subscribed"
	MessageTypeUnsubscribed    = "unsubscribed"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeError           = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type         string    `json:"type"`
	TournamentID string    `json:"tournament_id,omitempty"`
	Data         any       `json:"data,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// StandingsUpdate carries a tournament's reordered standings
type StandingsUpdate struct {
	TournamentID string                `json:"tournament_id"`
	Entries      []domain.RankingEntry `json:"entries"`
	Participants int                   `json:"participants"`
}

// Hub tracks connected clients and their tournament subscriptions
type Hub struct {
	// Subscribed clients by tournament ID
	clients map[string]map[*Client]bool

	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	// maximum entries pushed per update; 0 sends all
	maxEntries int
	snapshot   SnapshotFunc

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client       *Client
	tournamentID string
}

// NewHub creates a new Hub. Updates are truncated to maxEntries rows.
func NewHub(maxEntries int, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		maxEntries:  maxEntries,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for tid, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, tid)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.allClients[req.client]; ok {
				if _, ok := h.clients[req.tournamentID]; !ok {
					h.clients[req.tournamentID] = make(map[*Client]bool)
				}
				h.clients[req.tournamentID][req.client] = true
			}
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "tournament_id", req.tournamentID)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.tournamentID]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.tournamentID)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "tournament_id", req.tournamentID)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to the tournament's subscribers
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[message.TournamentID]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// SetSnapshotSource sets where new subscribers' initial standings come from
func (h *Hub) SetSnapshotSource(fn SnapshotFunc) {
	h.snapshot = fn
}

func (h *Hub) standingsMessage(tournamentID string, entries []domain.RankingEntry) Message {
	total := len(entries)
	if h.maxEntries > 0 && len(entries) > h.maxEntries {
		entries = entries[:h.maxEntries]
	}
	return Message{
		Type:         MessageTypeStandingsUpdate,
		TournamentID: tournamentID,
		Data: StandingsUpdate{
			TournamentID: tournamentID,
			Entries:      entries,
			Participants: total,
		},
		Timestamp: time.Now(),
	}
}

// BroadcastStandings queues a standings update for the tournament's
// subscribers. It never blocks the caller.
func (h *Hub) BroadcastStandings(tournamentID string, entries []domain.RankingEntry) {
	message := h.standingsMessage(tournamentID, entries)

	select {
	case h.broadcast <- &message:
	default:
		h.logger.Warn("broadcast channel full, dropping message", "tournament_id", tournamentID)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Subscribe adds a client to a tournament's subscribers
func (h *Hub) Subscribe(client *Client, tournamentID string) {
	h.subscribe <- &subscriptionRequest{client: client, tournamentID: tournamentID}
}

// Unsubscribe removes a client from a tournament's subscribers
func (h *Hub) Unsubscribe(client *Client, tournamentID string) {
	h.unsubscribe <- &subscriptionRequest{client: client, tournamentID: tournamentID}
}

// SubscriberCount returns the number of subscribers of a tournament
func (h *Hub) SubscriberCount(tournamentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tournamentID])
}

// TotalConnections returns the number of connected clients
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
