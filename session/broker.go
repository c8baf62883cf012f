package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type EventType string

const (
	EventLogin      EventType = "login"
	EventLogout     EventType = "logout"
	EventAuthChange EventType = "auth-change"
)

// Event is a session transition. SessionID identifies the browser session
// that changed; Origin identifies the publishing process so mirrored events
// are not delivered twice.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Origin    string    `json:"origin,omitempty"`
}

// Broker delivers session events to in-process subscribers synchronously and
// mirrors them over a redis channel so every running instance converges on
// the same authentication view without polling.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)

	rdb     *redis.Client
	channel string
	origin  string
	cancel  context.CancelFunc
}

// NewBroker starts the relay goroutine when rdb is non-nil. A nil rdb gives
// an in-process-only broker, which is all tests need.
func NewBroker(rdb *redis.Client, channel string) *Broker {
	b := &Broker{
		subs:    make(map[int]func(Event)),
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
	}

	if rdb != nil {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		go b.relay(ctx)
	}

	return b
}

// Subscribe registers fn for every subsequent event. fn runs on the
// publisher's goroutine, so it must not block.
func (b *Broker) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish dispatches to local subscribers before returning, then mirrors the
// event to other instances.
func (b *Broker) Publish(ctx context.Context, e Event) {
	e.Origin = b.origin
	b.dispatch(e)

	if b.rdb == nil {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		log.Error("failed to marshal session event", "err", err)
		return
	}

	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		log.Error("failed to mirror session event", "err", err)
	}
}

// dispatch invokes subscribers outside the lock so a callback may subscribe
// or unsubscribe without deadlocking.
func (b *Broker) dispatch(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

func (b *Broker) relay(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}

			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Error("failed to unmarshal session event", "err", err)
				continue
			}

			if e.Origin == b.origin {
				continue
			}

			b.dispatch(e)
		}
	}
}

func (b *Broker) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}
