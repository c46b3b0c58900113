package ws

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MockWebSocketConn implements WebSocketConn. Reads are served from the
// Incoming channel, writes are recorded.
type MockWebSocketConn struct {
	Incoming chan []byte

	mu        sync.Mutex
	closed    bool
	written   [][]byte
	readLimit int64
}

func NewMockWebSocketConn() *MockWebSocketConn {
	return &MockWebSocketConn{Incoming: make(chan []byte, 16)}
}

func (m *MockWebSocketConn) SetReadLimit(size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = size
}

func (m *MockWebSocketConn) ReadMessage() (messageType int, p []byte, err error) {
	message, ok := <-m.Incoming
	if !ok {
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
	return websocket.TextMessage, message, nil
}

func (m *MockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return websocket.ErrCloseSent
	}
	if messageType == websocket.TextMessage {
		m.written = append(m.written, data)
	}
	return nil
}

func (m *MockWebSocketConn) NextWriter(messageType int) (io.WriteCloser, error) {
	return &mockWriter{conn: m, messageType: messageType}, nil
}

func (m *MockWebSocketConn) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.written...)
}

func (m *MockWebSocketConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *MockWebSocketConn) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockWebSocketConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func (m *MockWebSocketConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (m *MockWebSocketConn) SetPongHandler(h func(appData string) error) {
}

func (m *MockWebSocketConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (m *MockWebSocketConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
}

type mockWriter struct {
	conn        *MockWebSocketConn
	messageType int
	buf         bytes.Buffer
}

func (w *mockWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *mockWriter) Close() error {
	return w.conn.WriteMessage(w.messageType, w.buf.Bytes())
}
