package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tableside/api/internal/auth"
	"github.com/tableside/api/internal/enum"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (we validate via JWT)
	},
}

// Client represents a single WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   uuid.UUID
	role string
	// table narrows order-completed events to one table; 0 means all tables.
	table int32
	send  chan []byte
}

// wants reports whether the client should receive an event. Only
// order-completed is directed; every other kind goes to everyone.
func (c *Client) wants(kind string, table int32) bool {
	if kind != enum.EventOrderCompleted || c.table == 0 {
		return true
	}
	return table == c.table
}

// ReadPump pumps messages from the WebSocket connection to the hub.
// Dashboards may send {"type":"order-changed","payload":{"table_number":N}}
// to ask the server to re-check a table and re-broadcast.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.String("client", c.id.String()), zap.Error(err))
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
			c.hub.logger.Debug("ignoring malformed client message", zap.String("client", c.id.String()))
			continue
		}
		c.hub.handleInbound(ev)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
// The application runs WritePump in a per-connection goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One event per frame so clients can decode each frame as JSON.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS handles WebSocket requests from clients
// Endpoint: WS /ws?token=JWT[&table=N]
// Customers are pinned to the table in their token.
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var table int32
	if s := r.URL.Query().Get("table"); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n <= 0 {
			http.Error(w, "invalid table", http.StatusBadRequest)
			return
		}
		table = int32(n)
	}
	if claims.Role == enum.RoleCustomer {
		if claims.TableNumber == 0 || (table != 0 && table != claims.TableNumber) {
			http.Error(w, "table access denied", http.StatusForbidden)
			return
		}
		table = claims.TableNumber
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		hub:   hub,
		conn:  conn,
		id:    uuid.New(),
		role:  claims.Role,
		table: table,
		send:  make(chan []byte, hub.sendBuffer),
	}
	if !hub.addClient(client) {
		conn.Close()
		return
	}
	hub.logger.Debug("websocket client connected",
		zap.String("client", client.id.String()),
		zap.String("role", client.role),
		zap.Int32("table", client.table))

	go client.WritePump()
	go client.ReadPump()
}
