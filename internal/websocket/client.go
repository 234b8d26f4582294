package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64

	// maxSubscriptions bounds the tournaments one connection can follow
	maxSubscriptions = 16
	snapshotTimeout  = 5 * time.Second
)

// the standings feed is public and read-only
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SnapshotFunc loads a tournament's current standings for a new subscriber
type SnapshotFunc func(ctx context.Context, tournamentID string) ([]domain.RankingEntry, error)

// Client is one WebSocket connection. Only readPump touches subscriptions.
type Client struct {
	id            string
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	logger        *slog.Logger
}

// ClientMessage is a request sent by the browser
type ClientMessage struct {
	Type         string `json:"type"`
	TournamentID string `json:"tournament_id,omitempty"`
}

// NewClient creates a client for an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:            id,
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		subscriptions: make(map[string]struct{}),
		logger:        logger.With("client_id", id),
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.sendError("invalid message format")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg ClientMessage) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.subscribeTo(msg.TournamentID)

	case MessageTypeUnsubscribe:
		if _, ok := c.subscriptions[msg.TournamentID]; !ok {
			return
		}
		delete(c.subscriptions, msg.TournamentID)
		c.hub.Unsubscribe(c, msg.TournamentID)
		c.reply(Message{Type: MessageTypeUnsubscribed, TournamentID: msg.TournamentID})

	case MessageTypePing:
		c.reply(Message{Type: MessageTypePong})

	default:
		c.logger.Debug("unknown message type", "type", msg.Type)
	}
}

// subscribeTo acknowledges the subscription and then sends the current
// standings so the client does not wait for the next reorder.
func (c *Client) subscribeTo(tournamentID string) {
	switch {
	case tournamentID == "":
		c.sendError("tournament_id required for subscribe")
		return
	case len(c.subscriptions) >= maxSubscriptions:
		c.sendError("too many subscriptions")
		return
	}

	if _, ok := c.subscriptions[tournamentID]; !ok {
		c.subscriptions[tournamentID] = struct{}{}
		c.hub.Subscribe(c, tournamentID)
	}
	c.reply(Message{Type: MessageTypeSubscribed, TournamentID: tournamentID})

	if c.hub.snapshot == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	entries, err := c.hub.snapshot(ctx, tournamentID)
	if err != nil {
		c.logger.Warn("failed to load standings snapshot", "tournament_id", tournamentID, "error", err)
		return
	}
	c.reply(c.hub.standingsMessage(tournamentID, entries))
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one frame per message so clients can decode each as JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues msg, dropping it when the client is not keeping up
func (c *Client) reply(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("client buffer full, dropping reply", "type", msg.Type)
	}
}

func (c *Client) sendError(text string) {
	c.reply(Message{Type: MessageTypeError, Data: map[string]string{"error": text}})
}

// ServeWs upgrades the request and attaches the connection to the hub
func ServeWs(hub *Hub, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(hub, conn, logger)
	hub.Register(client)

	go client.writePump()
	go client.readPump()
}
