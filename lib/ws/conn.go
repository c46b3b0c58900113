package ws

import (
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConn is the part of a gorilla connection a Client drives. Editor
// tests replace it with MockWebSocketConn.
type WebSocketConn interface {
	RemoteAddr() net.Addr
	SetReadLimit(size int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)

	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	NextWriter(messageType int) (io.WriteCloser, error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

var _ WebSocketConn = (*websocket.Conn)(nil)
