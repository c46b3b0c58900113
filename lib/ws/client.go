package ws

// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/ws"
	"github.com/ether/etherdoc/lib/settings"
	"github.com/ether/etherdoc/lib/ws/constants"
	"github.com/ether/etherdoc/lib/ws/ratelimiter"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn WebSocketConn
	// Buffered channel of outbound messages.
	Send chan []byte
	// Room is the ID of the document the client edits.
	Room      string
	SessionId string
	IP        string
	Handler   *MessageHandler
	logger    *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

// trySend queues payload without blocking. It fails when the buffer is full
// or the client is closed.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// readPump pumps messages from the websocket connection to the handler.
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump(retrievedSettings *settings.Settings) {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(retrievedSettings.Socket.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warnw("websocket closed unexpectedly", "room", c.Room, "error", err)
			}
			break
		}
		if err := ratelimiter.CheckRateLimit(ratelimiter.IPAddress(c.IP), retrievedSettings.CommitRateLimiting); err != nil {
			c.logger.Infow("rate limit exceeded", "room", c.Room, "ip", c.IP)
			c.replyError(exception.NewInvalidOperationError(constants.ErrorRateLimited))
			continue
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))

		var clientMessage ws.ClientMessage
		if err := json.Unmarshal(message, &clientMessage); err != nil {
			c.logger.Debugw("error unmarshalling message", "room", c.Room, "error", err)
			c.replyError(exception.NewInvalidOperationError(constants.ErrorInvalidMessage))
			continue
		}
		c.Handler.HandleMessage(c, clientMessage)
	}
}

// writePump pumps messages from the hub to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply sends a message to this client only. Replies are dropped when the
// send buffer is full or the hub already closed it.
func (c *Client) reply(event string, data any) {
	payload, err := json.Marshal(ws.ServerMessage{Event: event, Data: data})
	if err != nil {
		c.logger.Errorw("error marshalling reply", "event", event, "error", err)
		return
	}
	if !c.trySend(payload) {
		c.logger.Debugw("dropping reply", "room", c.Room, "event", event)
	}
}

func (c *Client) replyError(err error) {
	c.reply(ws.EventError, ws.ErrorMessage{Code: exception.CodeOf(err), Message: err.Error()})
}

func (c *Client) Leave() {
	c.Hub.unregister(c)
}

// ServeWs upgrades the request and runs the client of documentID until the
// connection closes.
func ServeWs(w http.ResponseWriter, r *http.Request, documentID string, ip string, configSettings *settings.Settings,
	logger *zap.SugaredLogger, handler *MessageHandler) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Infow("websocket upgrade failed", "room", documentID, "error", err)
		return
	}
	client := &Client{
		Hub:       handler.hub,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Room:      documentID,
		SessionId: uuid.NewString(),
		IP:        ip,
		Handler:   handler,
		logger:    logger,
	}
	if !client.Hub.register(client) {
		conn.Close()
		return
	}
	go client.writePump()
	if err := handler.Join(client); err != nil {
		logger.Warnw(constants.ErrorJoiningDocument, "room", documentID, "error", err)
		client.replyError(err)
		client.Leave()
		return
	}
	client.readPump(configSettings)
}
