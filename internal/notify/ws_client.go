package notify

import (
	"callgate/backend/internal/config"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	ID     string
	UserID uint
	Conn   *websocket.Conn
	Hub    *Hub
	Send   chan Event
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, userID uint) *WebSocketClient {
	return &WebSocketClient{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan Event, config.ClientBufferSize),
	}
}

func (c *WebSocketClient) GetID() string                { return c.ID }
func (c *WebSocketClient) GetUserID() uint              { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- Event { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops writePump, which closes the connection and in turn ends readPump.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump only keeps the connection alive; clients have nothing to say.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.WSMaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Uint("user_id", c.UserID).Msg("Websocket read failed")
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.WSPingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(ev.ForClient())
			if err != nil {
				log.Error().Err(err).Uint("user_id", c.UserID).Msg("Failed to encode event")
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
