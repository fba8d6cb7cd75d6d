package notify

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/change"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsTransport adapts a *websocket.Conn to the Transport interface. Writes
// are serialized through a single writer goroutine because gorilla's Conn
// forbids concurrent writers.
type wsTransport struct {
	conn   *websocket.Conn
	outbox chan Message
	closed chan struct{}
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	t := &wsTransport{
		conn:   conn,
		outbox: make(chan Message, 32),
		closed: make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

func (t *wsTransport) Send(msg Message) error {
	select {
	case t.outbox <- msg:
		return nil
	case <-t.closed:
		return ErrTransportClosed
	default:
		return ErrTransportClosed // outbox full: treat as a dead connection
	}
}

func (t *wsTransport) Close() error {
	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
	return t.conn.Close()
}

func (t *wsTransport) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-t.closed:
			return
		case msg := <-t.outbox:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(wireMessage(msg)); err != nil {
				t.Close()
				return
			}
		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.Close()
				return
			}
		}
	}
}

type wireEnvelope struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Title     string      `json:"title,omitempty"`
	Message   string      `json:"message,omitempty"`
	Severity  string      `json:"severity,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
	Read      bool        `json:"read"`
}

func wireMessage(msg Message) wireEnvelope {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return wireEnvelope{
		ID:        id,
		Type:      msg.Type,
		Title:     msg.Title,
		Message:   msg.Text,
		Severity:  string(msg.Severity),
		Timestamp: msg.Timestamp,
		Data:      msg.Data,
		Read:      msg.Read,
	}
}

// clientCommand is an inbound client -> server message.
type clientCommand struct {
	Type    string       `json:"type"`
	Filters *wireFilters `json:"filters,omitempty"`
	ID      string       `json:"notification_id,omitempty"`
}

type wireFilters struct {
	Types        []string `json:"types,omitempty"`
	MinSeverity  string   `json:"min_severity,omitempty"`
	PathPrefixes []string `json:"path_prefixes,omitempty"`
}

func (f wireFilters) toFilters() Filters {
	types := make([]MessageType, 0, len(f.Types))
	for _, t := range f.Types {
		types = append(types, MessageType(t))
	}
	return Filters{
		Types:        types,
		MinSeverity:  change.Severity(f.MinSeverity),
		PathPrefixes: f.PathPrefixes,
	}
}

// ServeWS upgrades the request to a websocket connection, registers a
// subscription with the Service, and pumps inbound client commands until
// the connection closes.
func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("notify: websocket upgrade failed", logger.Err(err))
		return
	}

	transport := newWSTransport(conn)
	sub := &Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		Transport: transport,
	}
	s.Connect(sub)
	defer s.Disconnect(sub.ID)
	defer transport.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.handleClientCommand(sub.ID, cmd)
	}
}

func (s *Service) handleClientCommand(subID string, cmd clientCommand) {
	switch cmd.Type {
	case "ping":
		_ = s.SendTo(subID, Message{
			ID:        uuid.NewString(),
			Type:      MessagePong,
			Timestamp: time.Now(),
		})
	case "update_filters":
		if cmd.Filters != nil {
			if err := s.UpdateFilters(subID, cmd.Filters.toFilters()); err != nil {
				logger.Warn("notify: update_filters failed", "subscription_id", subID, logger.Err(err))
			}
		}
	case "acknowledge_notification":
		_ = s.SendTo(subID, Message{
			ID:        uuid.NewString(),
			Type:      MessageNotificationAck,
			Data:      map[string]string{"notification_id": cmd.ID},
			Timestamp: time.Now(),
			Read:      true,
		})
	}
}
