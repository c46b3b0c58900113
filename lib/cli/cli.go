package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ether/etherdoc/lib/api/document"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/ether/etherdoc/lib/models/ws"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const defaultHost = "http://127.0.0.1:9001"

var errNotConnected = errors.New("document is not connected yet")

// Document is a websocket client of one document.
type Document struct {
	host       string
	documentID string
	conn       *websocket.Conn
	connWrite  sync.Mutex
	stateLock  sync.RWMutex
	snapshot   *ws.Snapshot
	version    atomic.Int64
	eventsLock sync.Mutex
	events     map[string][]func(any)
	closeChan  chan struct{}
	closeOnce  sync.Once
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

func NewDocument(host, documentID string, conn *websocket.Conn, logger *zap.SugaredLogger) *Document {
	return &Document{
		host:       host,
		documentID: documentID,
		conn:       conn,
		events:     make(map[string][]func(any)),
		closeChan:  make(chan struct{}),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (d *Document) ID() string {
	return d.documentID
}

func (d *Document) On(event string, handler func(any)) {
	d.eventsLock.Lock()
	defer d.eventsLock.Unlock()
	d.events[event] = append(d.events[event], handler)
}

func (d *Document) emit(event string, data any) {
	d.eventsLock.Lock()
	handlers := append([]func(any){}, d.events[event]...)
	d.eventsLock.Unlock()
	for _, handler := range handlers {
		go handler(data)
	}
}

// OnConnected fires once with the join snapshot, also when it arrived
// before the callback was registered.
func (d *Document) OnConnected(callback func(snapshot ws.Snapshot)) {
	var once sync.Once
	fire := func(snapshot ws.Snapshot) {
		once.Do(func() { callback(snapshot) })
	}
	d.On(ws.EventSnapshot, func(data any) {
		if snapshot, ok := data.(ws.Snapshot); ok {
			fire(snapshot)
		}
	})

	d.stateLock.RLock()
	snapshot := d.snapshot
	d.stateLock.RUnlock()
	if snapshot != nil {
		go fire(*snapshot)
	}
}

func (d *Document) OnChanged(callback func(change events.DocumentChanged)) {
	d.On(ws.EventDocumentChanged, func(data any) {
		if change, ok := data.(events.DocumentChanged); ok {
			callback(change)
		}
	})
}

func (d *Document) OnError(callback func(msg ws.ErrorMessage)) {
	d.On(ws.EventError, func(data any) {
		if msg, ok := data.(ws.ErrorMessage); ok {
			callback(msg)
		}
	})
}

func (d *Document) OnDisconnect(callback func(err any)) {
	d.On("disconnect", callback)
}

func (d *Document) Close() {
	d.closeOnce.Do(func() {
		close(d.closeChan)
		if d.conn != nil {
			_ = d.conn.Close()
		}
		d.emit("disconnect", nil)
	})
}

func (d *Document) send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	d.connWrite.Lock()
	defer d.connWrite.Unlock()
	return d.conn.WriteJSON(ws.ClientMessage{Event: event, Data: raw})
}

// Append adds text as a new paragraph at the end of the document. The
// snapshot is refetched first when changes arrived since it was taken.
func (d *Document) Append(text string) error {
	d.stateLock.RLock()
	snapshot := d.snapshot
	d.stateLock.RUnlock()
	if snapshot == nil || snapshot.Doc == nil {
		return errNotConnected
	}
	if int64(snapshot.Version) < d.version.Load() {
		var err error
		if snapshot, err = d.Refresh(); err != nil {
			return err
		}
	}

	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	blocks := snapshot.Doc.Textblocks()
	if len(blocks) == 0 {
		return fmt.Errorf("document %s has no text block", d.documentID)
	}
	last := blocks[len(blocks)-1]
	if !last.Node.IsEmptyTextblock() {
		text = "\n" + text
	}

	end := doc.Pos(last.Node.ContentSize(), last.Path...)
	if err := d.send(ws.EventSelection, ws.SelectionRequest{Range: doc.Cursor(end)}); err != nil {
		return err
	}
	return d.send(ws.EventText, ws.TextRequest{Text: text})
}

// Refresh replaces the local snapshot with the current server state.
func (d *Document) Refresh() (*ws.Snapshot, error) {
	var snapshot ws.Snapshot
	if err := d.getJSON(fmt.Sprintf("%s/api/documents/%s", d.host, url.PathEscape(d.documentID)), &snapshot); err != nil {
		return nil, err
	}
	d.stateLock.Lock()
	d.snapshot = &snapshot
	d.stateLock.Unlock()
	return &snapshot, nil
}

func (d *Document) getJSON(target string, out any) error {
	resp, err := d.httpClient.Get(target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", target, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Text fetches the plain text of the document over the HTTP API.
func (d *Document) Text() (string, error) {
	var text document.TextResponse
	if err := d.getJSON(fmt.Sprintf("%s/api/documents/%s/text", d.host, url.PathEscape(d.documentID)), &text); err != nil {
		return "", err
	}
	return text.Text, nil
}

// Version is the highest document version the server has announced.
func (d *Document) Version() int {
	return int(d.version.Load())
}

func (d *Document) observeVersion(v int) {
	for {
		current := d.version.Load()
		if int64(v) <= current || d.version.CompareAndSwap(current, int64(v)) {
			return
		}
	}
}

func (d *Document) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("panic in recv goroutine: %v", r)
		}
		d.Close()
	}()

	for {
		select {
		case <-d.closeChan:
			return
		default:
		}
		_, message, err := d.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				d.logger.Errorf("error: %v", err)
			}
			return
		}
		d.logger.Debugf("Received: %s", message)

		var envelope struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &envelope); err != nil {
			d.logger.Warnf("invalid message from server: %v", err)
			continue
		}
		switch envelope.Event {
		case ws.EventSnapshot:
			var snapshot ws.Snapshot
			if err := json.Unmarshal(envelope.Data, &snapshot); err != nil {
				d.logger.Warnf("invalid snapshot: %v", err)
				continue
			}
			d.stateLock.Lock()
			d.snapshot = &snapshot
			d.stateLock.Unlock()
			d.observeVersion(snapshot.Version)
			d.emit(ws.EventSnapshot, snapshot)
		case ws.EventDocumentChanged:
			var change events.DocumentChanged
			if err := json.Unmarshal(envelope.Data, &change); err != nil {
				continue
			}
			d.observeVersion(change.Version)
			d.emit(ws.EventDocumentChanged, change)
		case ws.EventError:
			var msg ws.ErrorMessage
			if err := json.Unmarshal(envelope.Data, &msg); err != nil {
				continue
			}
			d.emit(ws.EventError, msg)
		}
	}
}

// parseTarget splits a URL such as http://host:9001/api/documents/notes into
// the server address and the document ID. A missing ID gets a random one.
func parseTarget(target string) (string, string, error) {
	if target == "" {
		return defaultHost, randomDocumentID(), nil
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return "", "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", "", fmt.Errorf("invalid host URL %q", target)
	}
	host := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	path := strings.Trim(parsed.Path, "/")
	path = strings.TrimPrefix(strings.TrimPrefix(path, "api/documents"), "/")
	if path == "" || strings.Contains(path, "/") {
		return host, randomDocumentID(), nil
	}
	return host, path, nil
}

func randomDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func Connect(target string, logger *zap.SugaredLogger) (*Document, error) {
	host, documentID, err := parseTarget(target)
	if err != nil {
		return nil, err
	}

	wsURL := fmt.Sprintf("%s/api/documents/%s/ws", strings.Replace(host, "http", "ws", 1), url.PathEscape(documentID))
	logger.Infof("Connecting to WebSocket at %s", wsURL)
	connection, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connection failed with %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket connection failed: %w", err)
	}

	d := NewDocument(host, documentID, connection, logger)
	go d.readLoop()
	return d, nil
}

// RunFromCLI appends to a document, or prints it on every change until the
// connection closes.
func RunFromCLI(logger *zap.SugaredLogger, args []string) error {
	target, appendStr, err := parseCLIArgs(args)
	if err != nil {
		return err
	}

	d, err := Connect(target, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if appendStr != "" {
		return appendAndWait(d, appendStr, 10*time.Second)
	}

	show := func() {
		text, err := d.Text()
		if err != nil {
			logger.Warnf("could not fetch document: %v", err)
			return
		}
		fmt.Print("\u001b[2J\u001b[0;0H")
		fmt.Println("Document "+d.ID(), "\n"+text)
	}
	d.OnConnected(func(ws.Snapshot) { show() })
	d.OnChanged(func(events.DocumentChanged) { show() })

	done := make(chan struct{})
	var once sync.Once
	d.OnDisconnect(func(any) { once.Do(func() { close(done) }) })
	<-done

	logger.Infof("Stopping CLI")
	return nil
}

func appendAndWait(d *Document, text string, timeout time.Duration) error {
	result := make(chan error, 1)
	d.OnConnected(func(ws.Snapshot) {
		if err := d.Append(text); err != nil {
			result <- err
		}
	})
	d.OnChanged(func(events.DocumentChanged) {
		select {
		case result <- nil:
		default:
		}
	})
	d.OnError(func(msg ws.ErrorMessage) {
		select {
		case result <- errors.New(msg.Message):
		default:
		}
	})

	select {
	case err := <-result:
		if err == nil {
			fmt.Printf("Appended %q to %s\n", text, d.ID())
		}
		return err
	case <-time.After(timeout):
		return errors.New("append timeout")
	}
}

func parseCLIArgs(args []string) (string, string, error) {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	host := fs.String("host", "", "The document URL (e.g. http://127.0.0.1:9001/api/documents/notes)")
	appendStr := fs.String("append", "", "Append a paragraph to the document")
	fs.StringVar(appendStr, "a", "", "Append a paragraph to the document (shorthand)")

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		*host = args[0]
		args = args[1:]
	}

	err := fs.Parse(args)
	return *host, *appendStr, err
}
