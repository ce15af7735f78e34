// Package events implements the process-wide notification hub that
// fans state-change events out to live-update listeners. The hub is
// constructed once at startup and handed to the router, nothing else
// touches it directly.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeepAliveInterval is how often listeners receive a synthetic ping
// so half-open connections get detected.
const KeepAliveInterval = 15 * time.Second

// subscriberBuffer bounds the per-subscriber queue. A full queue means
// the subscriber is too slow and events are dropped for it, publishers
// are never blocked.
const subscriberBuffer = 16

type Event struct {
	Name string         `json:"event"`
	Data map[string]any `json:"data"`
	TS   time.Time      `json:"ts"`
}

type Bus struct {
	mu   sync.RWMutex
	subs map[string]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]chan Event)}
}

// Subscribe registers a new listener and returns its generated id, the
// receive channel and a cancel func. Cancel is idempotent, releases
// the registration and closes the channel.
func (b *Bus) Subscribe() (string, <-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			// Safe to close here: publishes send under the read lock,
			// so no send can overlap the close.
			close(ch)
			b.mu.Unlock()
		})
	}

	return id, ch, cancel
}

// Publish stamps the event with the server time and fans it out to
// every active subscriber. Delivery is best-effort, a subscriber that
// can't keep up loses events instead of slowing publishers down.
func (b *Bus) Publish(name string, data map[string]any) {
	evt := Event{
		Name: name,
		Data: data,
		TS:   time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			zap.L().Debug("Dropping event for slow subscriber",
				zap.String("subscriber", id),
				zap.String("event", name))
		}
	}
}

// Subscribers reports how many listeners are currently registered.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}
