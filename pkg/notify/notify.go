// Package notify is the Notification Service: a connection registry,
// filter-matched fan-out over a bounded queue, and the websocket transport
// subscribers connect through.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/metrics"
)

// SeverityRank orders severities for min_severity filter comparisons.
var severityRank = map[change.Severity]int{
	change.SeverityLow:      1,
	change.SeverityMedium:   2,
	change.SeverityHigh:     3,
	change.SeverityCritical: 4,
}

// MessageType identifies a server -> client envelope's kind.
type MessageType string

const (
	MessageConnectionEstablished MessageType = "connection_established"
	MessageChange                MessageType = "change"
	MessageHealthIssue           MessageType = "health_issue"
	MessagePong                  MessageType = "pong"
	MessageNotificationAck       MessageType = "notification_acknowledged"
)

// Message is one server -> client envelope.
type Message struct {
	ID        string
	Type      MessageType
	Title     string
	Text      string // human-readable body; wire field "message"
	Severity  change.Severity // zero value if not applicable
	Data      any
	Timestamp time.Time
	Read      bool
	// target, if non-empty, restricts delivery to one subscription id
	// instead of broadcasting to every match.
	target string
}

// Filters narrows which broadcast messages a subscription receives.
type Filters struct {
	Types        []MessageType
	MinSeverity  change.Severity // zero value means unset
	PathPrefixes []string
}

func (f Filters) matches(msg Message) bool {
	if len(f.Types) > 0 && !containsType(f.Types, msg.Type) {
		return false
	}
	if f.MinSeverity != "" {
		if msg.Severity == "" || severityRank[msg.Severity] < severityRank[f.MinSeverity] {
			return false
		}
	}
	if len(f.PathPrefixes) > 0 {
		p, ok := pathOf(msg.Data)
		if !ok || !anyPrefix(p, f.PathPrefixes) {
			return false
		}
	}
	return true
}

func containsType(types []MessageType, t MessageType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func anyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if len(p) <= len(s) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

// pathOf extracts a "path" field from common data shapes without coupling
// this package to every event payload type.
func pathOf(data any) (string, bool) {
	type pather interface{ Path() string }
	if p, ok := data.(pather); ok {
		return p.Path(), true
	}
	if m, ok := data.(map[string]any); ok {
		if p, ok := m["path"].(string); ok {
			return p, true
		}
	}
	return "", false
}

// Transport is the connection-specific send primitive, implemented by the
// websocket connection wrapper. A send failure means the subscription is
// dead and must be unregistered.
type Transport interface {
	Send(msg Message) error
	Close() error
}

// Subscription is one connected client.
type Subscription struct {
	ID        string
	UserID    string // optional
	Filters   Filters
	Transport Transport
}

// Service is the Notification Service: registry + bounded queue + single
// fan-out processor.
type Service struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	byUser        map[string]map[string]bool

	queue chan Message
	done  chan struct{}
	wg    sync.WaitGroup

	metrics *metrics.Metrics
}

// DefaultQueueCapacity bounds the internal fan-out queue.
const DefaultQueueCapacity = 1024

// NewService starts the Service's single processor goroutine.
func NewService(queueCapacity int) *Service {
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	s := &Service{
		subscriptions: make(map[string]*Subscription),
		byUser:        make(map[string]map[string]bool),
		queue:         make(chan Message, queueCapacity),
		done:          make(chan struct{}),
	}
	s.wg.Add(1)
	go s.process()
	return s
}

// WithMetrics attaches m so connect/disconnect/delivery events record
// subscriber counts and message totals. A nil m (the default) disables
// instrumentation.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Connect registers sub and sends it a connection_established envelope.
func (s *Service) Connect(sub *Subscription) {
	s.mu.Lock()
	s.subscriptions[sub.ID] = sub
	if sub.UserID != "" {
		if s.byUser[sub.UserID] == nil {
			s.byUser[sub.UserID] = map[string]bool{}
		}
		s.byUser[sub.UserID][sub.ID] = true
	}
	n := len(s.subscriptions)
	s.mu.Unlock()
	s.metrics.SetActiveConnections(n)

	_ = sub.Transport.Send(Message{
		ID:        uuid.NewString(),
		Type:      MessageConnectionEstablished,
		Title:     "Connected",
		Text:      "subscription established",
		Timestamp: time.Now(),
	})
}

// Disconnect unregisters id idempotently.
func (s *Service) Disconnect(id string) {
	s.mu.Lock()
	sub, ok := s.subscriptions[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.subscriptions, id)
	if sub.UserID != "" {
		delete(s.byUser[sub.UserID], id)
	}
	n := len(s.subscriptions)
	s.mu.Unlock()
	s.metrics.SetActiveConnections(n)
}

// UpdateFilters replaces subscription id's filters, for the update_filters
// client message.
func (s *Service) UpdateFilters(id string, f Filters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.Filters = f
	return nil
}

// Broadcast enqueues msg for delivery to every matching subscription. If
// the queue is full the message is dropped rather than blocking the
// caller; queue capacity is sized so this should not happen in practice.
func (s *Service) Broadcast(msg Message) error {
	select {
	case s.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// NotifyChange implements pkg/monitor.Notifier, rendering a change set into
// a broadcast Message.
func (s *Service) NotifyChange(path string, cs *change.ChangeSet, severity change.Severity) {
	summary := change.Format(cs, severity)
	data := newChangeData(path, cs, severity, summary)
	err := s.Broadcast(Message{
		ID:        uuid.NewString(),
		Type:      MessageChange,
		Title:     changeTitle(data.Folder.Name, severity),
		Text:      changeText(summary),
		Severity:  severity,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		logger.Warn("notify: dropped change notification", "path", path, logger.Err(err))
	}
}

// SendTo enqueues msg for exactly one subscription, bypassing filter
// matching (used for direct request/response messages like pong).
func (s *Service) SendTo(subID string, msg Message) error {
	msg.target = subID
	select {
	case s.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes every live subscription's transport, drains no further
// messages, and waits for the processor to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	for _, sub := range s.subscriptions {
		_ = sub.Transport.Close()
	}
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
}

func (s *Service) process() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.queue:
			s.deliver(msg)
		}
	}
}

func (s *Service) deliver(msg Message) {
	if msg.target != "" {
		s.deliverTo(msg.target, msg)
		return
	}

	s.mu.RLock()
	targets := make([]*Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		if sub.Filters.matches(msg) {
			targets = append(targets, sub)
		}
	}
	s.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.Transport.Send(msg); err != nil {
			s.metrics.ObserveDisconnect()
			s.Disconnect(sub.ID)
			continue
		}
		s.metrics.ObserveMessageSent()
	}
}

func (s *Service) deliverTo(id string, msg Message) {
	s.mu.RLock()
	sub, ok := s.subscriptions[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if err := sub.Transport.Send(msg); err != nil {
		s.metrics.ObserveDisconnect()
		s.Disconnect(id)
		return
	}
	s.metrics.ObserveMessageSent()
}
