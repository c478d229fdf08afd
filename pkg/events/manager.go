package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// keepAliveInterval is how often the server sends a ping envelope.
const keepAliveInterval = 30 * time.Second

// StreamSource provides per-run event streams and status lookups. The run
// manager implements it.
type StreamSource interface {
	// SubscribeRun attaches a named sink to the run's emitter.
	SubscribeRun(runID, name string, buffer int) (*Sink, error)
	// RunStatus returns the run's current status payload.
	RunStatus(runID string) (RunStatusPayload, error)
}

// ConnectionManager owns all WebSocket event-stream connections of the
// process. Each connection subscribes to exactly one run.
type ConnectionManager struct {
	source       StreamSource
	writeTimeout time.Duration
	logger       *slog.Logger

	mu          sync.RWMutex
	connections map[string]*Connection
}

// Connection is a single WebSocket client subscribed to one run.
type Connection struct {
	ID     string
	RunID  string
	Conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// NewConnectionManager creates a manager. logger may be nil.
func NewConnectionManager(source StreamSource, writeTimeout time.Duration, logger *slog.Logger) *ConnectionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		source:       source,
		writeTimeout: writeTimeout,
		logger:       logger,
		connections:  make(map[string]*Connection),
	}
}

// HandleConnection runs the lifecycle of one upgraded WebSocket connection
// subscribed to runID. Blocks until the connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn, runID string) {
	ctx, cancel := context.WithCancel(parentCtx)
	c := &Connection{
		ID:     uuid.New().String(),
		RunID:  runID,
		Conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}
	m.register(c)
	defer m.unregister(c)

	sink, err := m.source.SubscribeRun(runID, "ws:"+c.ID, 0)
	if err != nil {
		m.sendEvent(c, Event{
			Type:      EventError,
			Data:      ErrorPayload{RunID: runID, Message: err.Error()},
			Timestamp: time.Now().UTC(),
		})
		return
	}
	defer sink.Close()

	m.sendEvent(c, Event{
		Type:      EventConnected,
		Data:      ConnectedPayload{RunID: runID, ConnectionID: c.ID},
		Timestamp: time.Now().UTC(),
	})

	// Pump: sink events and keep-alive pings to the client.
	go m.pump(c, sink)

	// Read loop: client control messages until the connection closes.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Warn("invalid websocket message", "connection_id", c.ID, "error", err)
			continue
		}
		m.handleClientMessage(c, &msg)
	}
}

func (m *ConnectionManager) pump(c *Connection, sink *Sink) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-sink.Events():
			if !ok {
				return
			}
			if !m.sendEvent(c, ev) {
				return
			}
		case <-ticker.C:
			if !m.sendEvent(c, Event{Type: EventPing, Data: struct{}{}, Timestamp: time.Now().UTC()}) {
				return
			}
		}
	}
}

func (m *ConnectionManager) handleClientMessage(c *Connection, msg *ClientMessage) {
	switch msg.Type {
	case "ping":
		m.sendEvent(c, Event{Type: EventPong, Data: struct{}{}, Timestamp: time.Now().UTC()})
	case "get_status":
		status, err := m.source.RunStatus(c.RunID)
		if err != nil {
			m.sendEvent(c, Event{
				Type:      EventError,
				Data:      ErrorPayload{RunID: c.RunID, Message: err.Error()},
				Timestamp: time.Now().UTC(),
			})
			return
		}
		m.sendEvent(c, Event{Type: EventRunStatus, Data: status, Timestamp: time.Now().UTC()})
	default:
		m.logger.Warn("unknown client message type", "connection_id", c.ID, "type", msg.Type)
	}
}

// ActiveConnections returns the number of open connections.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

func (m *ConnectionManager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.ID] = c
}

func (m *ConnectionManager) unregister(c *Connection) {
	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()
	c.cancel()
	_ = c.Conn.Close(websocket.StatusNormalClosure, "")
}

// sendEvent marshals and writes one envelope with the write timeout.
// Returns false when the connection is no longer writable.
func (m *ConnectionManager) sendEvent(c *Connection, ev Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		m.logger.Warn("failed to marshal event", "connection_id", c.ID, "error", err)
		return true
	}
	writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
	defer cancel()
	if err := c.Conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		m.logger.Warn("failed to write to websocket client", "connection_id", c.ID, "error", err)
		c.cancel()
		return false
	}
	return true
}
