package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shareguard/shareguard/pkg/change"
)

type fakeTransport struct {
	mu       sync.Mutex
	received []Message
	failNext bool
	closed   bool
}

func (f *fakeTransport) Send(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return errors.New("send failed")
	}
	f.received = append(f.received, msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestConnectSendsConnectionEstablished(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	tr := &fakeTransport{}
	s.Connect(&Subscription{ID: "a", Transport: tr})

	if tr.count() != 1 || tr.received[0].Type != MessageConnectionEstablished {
		t.Fatalf("expected connection_established on connect, got %+v", tr.received)
	}
}

func TestBroadcastDeliversToMatchingSubscriptionOnly(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	matching := &fakeTransport{}
	other := &fakeTransport{}
	s.Connect(&Subscription{ID: "a", Transport: matching, Filters: Filters{MinSeverity: change.SeverityHigh}})
	s.Connect(&Subscription{ID: "b", Transport: other, Filters: Filters{MinSeverity: change.SeverityCritical}})

	s.Broadcast(Message{Type: MessageChange, Severity: change.SeverityHigh, Timestamp: time.Now()})

	waitFor(t, func() bool { return matching.count() == 2 }) // connection_established + change
	time.Sleep(20 * time.Millisecond)
	if other.count() != 1 {
		t.Errorf("expected subscription with stricter min_severity to not receive the change, got %d messages", other.count())
	}
}

func TestFilterByPathPrefix(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	tr := &fakeTransport{}
	s.Connect(&Subscription{ID: "a", Transport: tr, Filters: Filters{PathPrefixes: []string{`C:\Finance`}}})

	s.Broadcast(Message{Type: MessageChange, Data: changeData{Folder: changeFolder{FullPath: `C:\HR\file.txt`}}, Timestamp: time.Now()})
	s.Broadcast(Message{Type: MessageChange, Data: changeData{Folder: changeFolder{FullPath: `C:\Finance\file.txt`}}, Timestamp: time.Now()})

	waitFor(t, func() bool { return tr.count() == 2 }) // connection_established + the matching change
}

func TestFilterByType(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	tr := &fakeTransport{}
	s.Connect(&Subscription{ID: "a", Transport: tr, Filters: Filters{Types: []MessageType{MessageHealthIssue}}})

	s.Broadcast(Message{Type: MessageChange, Timestamp: time.Now()})
	s.Broadcast(Message{Type: MessageHealthIssue, Timestamp: time.Now()})

	waitFor(t, func() bool { return tr.count() == 2 })
}

func TestSendFailureDisconnectsOnlyThatSubscription(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	bad := &fakeTransport{failNext: true}
	good := &fakeTransport{}
	s.Connect(&Subscription{ID: "bad", Transport: bad})
	s.Connect(&Subscription{ID: "good", Transport: good})

	s.Broadcast(Message{Type: MessageChange, Timestamp: time.Now()})

	waitFor(t, func() bool { return good.count() == 2 })

	s.mu.RLock()
	_, stillThere := s.subscriptions["bad"]
	_, goodStillThere := s.subscriptions["good"]
	s.mu.RUnlock()

	if stillThere {
		t.Error("expected failed subscription to be disconnected")
	}
	if !goodStillThere {
		t.Error("expected unrelated subscription to remain connected")
	}
}

func TestUpdateFiltersAppliesToSubsequentBroadcasts(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	tr := &fakeTransport{}
	s.Connect(&Subscription{ID: "a", Transport: tr, Filters: Filters{Types: []MessageType{MessageHealthIssue}}})

	s.Broadcast(Message{Type: MessageChange, Timestamp: time.Now()})
	time.Sleep(20 * time.Millisecond)
	if tr.count() != 1 {
		t.Fatalf("expected change to be filtered out before update, got %d", tr.count())
	}

	if err := s.UpdateFilters("a", Filters{}); err != nil {
		t.Fatalf("expected UpdateFilters to find the subscription, got %v", err)
	}
	s.Broadcast(Message{Type: MessageChange, Timestamp: time.Now()})
	waitFor(t, func() bool { return tr.count() == 2 })
}

func TestUpdateFiltersUnknownSubscriptionReturnsError(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	if err := s.UpdateFilters("nope", Filters{}); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("expected ErrSubscriptionNotFound for unknown subscription id, got %v", err)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	s.Connect(&Subscription{ID: "a", Transport: &fakeTransport{}})
	s.Disconnect("a")
	s.Disconnect("a") // must not panic
}

func TestSendToTargetsSingleSubscription(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	a := &fakeTransport{}
	b := &fakeTransport{}
	s.Connect(&Subscription{ID: "a", Transport: a})
	s.Connect(&Subscription{ID: "b", Transport: b})

	s.SendTo("a", Message{Type: MessagePong, Timestamp: time.Now()})

	waitFor(t, func() bool { return a.count() == 2 })
	time.Sleep(20 * time.Millisecond)
	if b.count() != 1 {
		t.Errorf("expected only subscription a to receive the targeted message, got %d on b", b.count())
	}
}

func TestNotifyChangeBroadcastsWithSeverity(t *testing.T) {
	s := NewService(16)
	defer s.Stop()

	tr := &fakeTransport{}
	s.Connect(&Subscription{ID: "a", Transport: tr, Filters: Filters{MinSeverity: change.SeverityLow}})

	s.NotifyChange(`C:\Shared`, &change.ChangeSet{Path: `C:\Shared`}, change.SeverityHigh)

	waitFor(t, func() bool { return tr.count() == 2 })
	if tr.received[1].Severity != change.SeverityHigh {
		t.Errorf("expected severity high, got %v", tr.received[1].Severity)
	}
}
