package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/bot"
)

const writeTimeout = 5 * time.Second

// Monitor is a websocket hub broadcasting the engine's per-tick status to
// connected observers. Slow or dead clients are dropped rather than allowed
// to back-pressure the tick loop.
type Monitor struct {
	upgrader websocket.Upgrader
	logger   *logrus.Entry

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	last    *bot.TickStatus
}

// NewMonitor creates an empty hub.
func NewMonitor(logger *logrus.Entry) *Monitor {
	return &Monitor{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The monitor is an internal observability endpoint.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger.WithField("component", "monitor"),
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeWS upgrades the request and registers the client. The last published
// status is replayed immediately so a fresh client need not wait a tick.
func (m *Monitor) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	m.mu.Lock()
	m.clients[conn] = true
	last := m.last
	m.mu.Unlock()

	m.logger.WithField("remote", conn.RemoteAddr().String()).Debug("monitor client connected")
	if last != nil {
		m.send(conn, last)
	}

	// Drain and discard client frames so pings are answered and closes are
	// noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				m.drop(conn)
				return
			}
		}
	}()
}

// PublishStatus broadcasts a tick status to every connected client.
// Implements the engine's status sink.
func (m *Monitor) PublishStatus(status bot.TickStatus) {
	m.mu.Lock()
	m.last = &status
	conns := make([]*websocket.Conn, 0, len(m.clients))
	for c := range m.clients {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		m.send(c, &status)
	}
}

// Close disconnects every client.
func (m *Monitor) Close() {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.clients))
	for c := range m.clients {
		conns = append(conns, c)
	}
	m.clients = make(map[*websocket.Conn]bool)
	m.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (m *Monitor) send(conn *websocket.Conn, status *bot.TickStatus) {
	payload, err := json.Marshal(status)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		m.drop(conn)
	}
}

func (m *Monitor) drop(conn *websocket.Conn) {
	m.mu.Lock()
	delete(m.clients, conn)
	m.mu.Unlock()
	conn.Close()
}

var _ bot.StatusSink = (*Monitor)(nil)
