package session

import (
	"context"
	"sync"
	"testing"
)

// memoryStore is an in-process CredentialStore for tests.
type memoryStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tokens: make(map[string]string)}
}

func (ms *memoryStore) Save(_ context.Context, sessionID, token string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.tokens[sessionID] = token
	return nil
}

func (ms *memoryStore) Get(_ context.Context, sessionID string) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.tokens[sessionID], nil
}

func (ms *memoryStore) Delete(_ context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.tokens, sessionID)
	return nil
}

func TestBroker(t *testing.T) {
	t.Run("Subscribers Receive Published Events", func(t *testing.T) {
		b := NewBroker(nil, "")
		defer b.Close()

		var got []Event
		unsub := b.Subscribe(func(e Event) { got = append(got, e) })
		defer unsub()

		b.Publish(context.Background(), Event{Type: EventLogin, SessionID: "s1"})

		if len(got) != 1 {
			t.Fatalf("expected 1 event, got %d", len(got))
		}
		if got[0].Type != EventLogin || got[0].SessionID != "s1" {
			t.Errorf("unexpected event %+v", got[0])
		}
		if got[0].Origin == "" {
			t.Error("expected publish to stamp the origin")
		}
	})

	t.Run("Callbacks May Mutate Subscriptions", func(t *testing.T) {
		b := NewBroker(nil, "")
		defer b.Close()

		var unsub func()
		var selfRemoved, added bool
		unsub = b.Subscribe(func(Event) {
			selfRemoved = true
			unsub()
			b.Subscribe(func(Event) { added = true })
		})

		// Must return rather than deadlock on the broker's own lock.
		b.Publish(context.Background(), Event{Type: EventLogout})
		if !selfRemoved {
			t.Fatal("expected callback to run")
		}

		b.Publish(context.Background(), Event{Type: EventAuthChange})
		if !added {
			t.Error("expected subscriber added from a callback to receive events")
		}
	})

	t.Run("Unsubscribed Callbacks Stop Receiving", func(t *testing.T) {
		b := NewBroker(nil, "")
		defer b.Close()

		var count int
		unsub := b.Subscribe(func(Event) { count++ })

		b.Publish(context.Background(), Event{Type: EventAuthChange})
		unsub()
		b.Publish(context.Background(), Event{Type: EventAuthChange})

		if count != 1 {
			t.Errorf("expected 1 delivery, got %d", count)
		}
	})
}

func TestManager(t *testing.T) {
	t.Run("Set Then Clear Emits The Full Event Sequence", func(t *testing.T) {
		m := NewManager(newMemoryStore(), NewBroker(nil, ""))
		defer m.Broker().Close()

		var types []EventType
		unsub := m.Broker().Subscribe(func(e Event) { types = append(types, e.Type) })
		defer unsub()

		ctx := context.Background()
		if err := m.SetCredential(ctx, "s1", "tok-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := m.ClearCredential(ctx, "s1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []EventType{EventLogin, EventAuthChange, EventLogout, EventAuthChange}
		if len(types) != len(want) {
			t.Fatalf("expected %d events, got %d: %v", len(want), len(types), types)
		}
		for i, typ := range want {
			if types[i] != typ {
				t.Errorf("event %d: expected %q, got %q", i, typ, types[i])
			}
		}
	})

	t.Run("IsAuthenticated Tracks Credential Presence", func(t *testing.T) {
		m := NewManager(newMemoryStore(), NewBroker(nil, ""))
		defer m.Broker().Close()

		ctx := context.Background()
		if m.IsAuthenticated(ctx, "s1") {
			t.Error("expected unauthenticated before any login")
		}

		m.SetCredential(ctx, "s1", "tok-1")
		if !m.IsAuthenticated(ctx, "s1") {
			t.Error("expected authenticated after login")
		}
		if m.IsAuthenticated(ctx, "s2") {
			t.Error("expected other sessions unaffected")
		}

		m.ClearCredential(ctx, "s1")
		if m.IsAuthenticated(ctx, "s1") {
			t.Error("expected unauthenticated after logout")
		}

		// Clearing an already-absent credential stays signed out and
		// still reports success.
		if err := m.ClearCredential(ctx, "s1"); err != nil {
			t.Errorf("expected idempotent clear, got %v", err)
		}
	})

	t.Run("Credential Is Replaced Wholesale", func(t *testing.T) {
		m := NewManager(newMemoryStore(), NewBroker(nil, ""))
		defer m.Broker().Close()

		ctx := context.Background()
		m.SetCredential(ctx, "s1", "tok-1")
		m.SetCredential(ctx, "s1", "tok-2")

		token, err := m.Credential(ctx, "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "tok-2" {
			t.Errorf("expected tok-2, got %q", token)
		}
	})
}
