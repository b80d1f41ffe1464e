package mindgraph

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/soundprediction/mindgraph/pkg/store"
)

// EventType names a graph lifecycle change.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
	EventEvicted EventType = "evicted"
)

// GraphEvent reports a change to a graph. Version is the graph version after
// the change and is 0 for deletions and evictions.
type GraphEvent struct {
	Type    EventType `json:"type"`
	GraphID string    `json:"graph_id"`
	Version uint64    `json:"version"`
	At      time.Time `json:"at"`
}

// broker fans events out to subscribers. Slow subscribers lose events rather
// than block writers.
type broker struct {
	mu     sync.Mutex
	subs   map[int]chan GraphEvent
	next   int
	closed bool
	logger *slog.Logger
}

func newBroker(logger *slog.Logger) *broker {
	return &broker{subs: make(map[int]chan GraphEvent), logger: logger}
}

func (b *broker) subscribe(buffer int) (<-chan GraphEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan GraphEvent, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broker) publish(ev GraphEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("dropping graph event for slow subscriber", "subscriber", id, "graph_id", ev.GraphID, "type", ev.Type)
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscribe implements EventSource.
func (c *Client) Subscribe(buffer int) (<-chan GraphEvent, func()) {
	return c.events.subscribe(buffer)
}

// GraphVersion returns the version counter of a graph. It grows by one with
// every committed change, so clients can poll it cheaply.
func (c *Client) GraphVersion(ctx context.Context, graphID string) (uint64, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return 0, err
	}
	var version uint64
	err := c.store.View(graphID, func(g *store.Graph) error {
		version = g.Version
		return nil
	})
	return version, err
}
