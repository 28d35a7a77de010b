package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"go.viam.com/stereorepeater/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebsocketTopic streams every published message as a JSON text frame to its connected clients.
// A client whose send queue is full misses messages rather than slowing down the publisher.
type WebsocketTopic[T any] struct {
	name      string
	queueSize int
	logger    logging.Logger
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	clients map[uuid.UUID]*wsClient
	closed  bool

	dropped atomic.Uint64
	wg      sync.WaitGroup
}

type wsClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// NewWebsocketTopic returns a topic with no clients. queueSize bounds each client's send queue.
func NewWebsocketTopic[T any](name string, queueSize int, logger logging.Logger) *WebsocketTopic[T] {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &WebsocketTopic[T]{
		name:      name,
		queueSize: queueSize,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[uuid.UUID]*wsClient{},
	}
}

// Name returns the topic name.
func (wt *WebsocketTopic[T]) Name() string {
	return wt.name
}

// NumSubscribers returns the number of connected clients.
func (wt *WebsocketTopic[T]) NumSubscribers() int {
	wt.mu.RLock()
	defer wt.mu.RUnlock()
	return len(wt.clients)
}

// Dropped returns how many client sends were skipped because a queue was full.
func (wt *WebsocketTopic[T]) Dropped() uint64 {
	return wt.dropped.Load()
}

// Publish encodes msg once and queues it for every client.
func (wt *WebsocketTopic[T]) Publish(msg T) {
	data, err := json.Marshal(msg)
	if err != nil {
		wt.logger.Errorw("cannot encode message", "topic", wt.name, "error", err)
		return
	}
	wt.mu.RLock()
	defer wt.mu.RUnlock()
	for _, client := range wt.clients {
		select {
		case client.send <- data:
		default:
			wt.dropped.Inc()
		}
	}
}

// ServeHTTP upgrades the request and streams the topic to it until the client goes away.
func (wt *WebsocketTopic[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wt.mu.RLock()
	closed := wt.closed
	wt.mu.RUnlock()
	if closed {
		http.Error(w, "topic closed", http.StatusServiceUnavailable)
		return
	}
	conn, err := wt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		wt.logger.Debugw("websocket upgrade failed", "topic", wt.name, "error", err)
		return
	}
	client := &wsClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, wt.queueSize),
	}

	wt.mu.Lock()
	if wt.closed {
		// closed while upgrading
		wt.mu.Unlock()
		utils.UncheckedError(conn.Close())
		return
	}
	wt.clients[client.id] = client
	wt.wg.Add(1)
	wt.mu.Unlock()
	wt.logger.Infow("client connected", "topic", wt.name, "id", client.id.String(), "remote", r.RemoteAddr)

	utils.PanicCapturingGo(func() {
		defer wt.wg.Done()
		wt.writePump(client)
	})
	wt.readPump(client)
}

func (wt *WebsocketTopic[T]) remove(client *wsClient) {
	wt.mu.Lock()
	_, ok := wt.clients[client.id]
	delete(wt.clients, client.id)
	wt.mu.Unlock()
	client.closeSend()
	if ok {
		wt.logger.Infow("client disconnected", "topic", wt.name, "id", client.id.String())
	}
}

// readPump discards client messages and keeps the read deadline alive with pongs. It returns
// when the connection fails.
func (wt *WebsocketTopic[T]) readPump(client *wsClient) {
	defer func() {
		wt.remove(client)
		utils.UncheckedError(client.conn.Close())
	}()
	client.conn.SetReadLimit(maxMessageSize)
	utils.UncheckedError(client.conn.SetReadDeadline(time.Now().Add(pongWait)))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wt.logger.Debugw("websocket read error", "topic", wt.name, "error", err)
			}
			return
		}
	}
}

func (wt *WebsocketTopic[T]) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		utils.UncheckedError(client.conn.Close())
	}()
	for {
		select {
		case data, ok := <-client.send:
			utils.UncheckedError(client.conn.SetWriteDeadline(time.Now().Add(writeWait)))
			if !ok {
				utils.UncheckedError(client.conn.WriteMessage(websocket.CloseMessage, []byte{}))
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				wt.logger.Debugw("websocket write error", "topic", wt.name, "error", err)
				return
			}
		case <-ticker.C:
			utils.UncheckedError(client.conn.SetWriteDeadline(time.Now().Add(writeWait)))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and waits for their writers to finish. Later connection
// attempts are refused with 503.
func (wt *WebsocketTopic[T]) Close() error {
	wt.mu.Lock()
	wt.closed = true
	clients := make([]*wsClient, 0, len(wt.clients))
	for id, client := range wt.clients {
		clients = append(clients, client)
		delete(wt.clients, id)
	}
	wt.mu.Unlock()
	for _, client := range clients {
		client.closeSend()
	}
	wt.wg.Wait()
	return nil
}

// DecodeMessage decodes one text frame produced by a WebsocketTopic.
func DecodeMessage[T any](data []byte) (T, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, errors.Wrap(err, "error decoding topic message")
	}
	return msg, nil
}
