package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Close codes on the wire. The 4xxx range is application-defined.
const (
	CloseNormal       = websocket.CloseNormalClosure
	CloseUnauthorized = 4001
	CloseForbidden    = 4403
	CloseNotFound     = 4404
)

// Client is one websocket connection attached to the Hub. It receives
// events for every group it was registered with and forwards inbound text
// frames to the onMessage callback.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	roomID uint
	userID uint
	groups []string
	send   chan []byte

	onMessage func(data []byte)
	onClose   func()

	closeOnce sync.Once
	sendOnce  sync.Once
}

// NewClient creates a Client. onMessage runs on the read pump goroutine
// for each inbound text frame; onClose runs exactly once when the
// connection is torn down, after the client left the Hub.
func NewClient(hub *Hub, conn *websocket.Conn, roomID, userID uint, groups []string, onMessage func(data []byte), onClose func()) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		roomID:    roomID,
		userID:    userID,
		groups:    groups,
		send:      make(chan []byte, 256),
		onMessage: onMessage,
		onClose:   onClose,
	}
}

// Run registers the client and starts both pumps.
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// Send queues a frame for this client only, bypassing the fanout. Used
// for the initial draw snapshot. Returns false when the buffer is full.
func (c *Client) Send(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
			Warn("Client send channel full, dropping direct message")
		return false
	}
}

// Shutdown writes a close frame with the given code and tears the
// connection down. Safe to call from any goroutine, repeatedly.
func (c *Client) Shutdown(code int, reason string) {
	c.closeOnce.Do(func() {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason))
		_ = c.conn.Close()
	})
}

func (c *Client) RoomID() uint { return c.roomID }
func (c *Client) UserID() uint { return c.userID }

// closeSend closes the send channel once. Only the Hub calls this, from
// Unregister.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() { close(c.send) })
}

// readPump pumps inbound frames to the onMessage callback. On exit it
// unregisters the client and fires onClose, which is where presence is
// decremented.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Shutdown(CloseNormal, "")
		if c.onClose != nil {
			c.onClose()
		}
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
			Debug("readPump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

// writePump pumps the send channel to the socket and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel during unregister.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
					WithError(err).Warn("Failed to write message to websocket")
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
