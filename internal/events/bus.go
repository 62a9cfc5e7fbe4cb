package events

import (
	"context"
	"slices"
	"sync"
	"time"
)

type Kind string

const (
	KindSaleCreated      Kind = "sale.created"
	KindSaleDeleted      Kind = "sale.deleted"
	KindProductChanged   Kind = "product.changed"
	KindReposicaoChanged Kind = "reposicao.changed"
)

// Event only says what changed. Subscribers re-fetch whatever they show.
type Event struct {
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at"`
}

func New(kind Kind) Event {
	return Event{Kind: kind, At: time.Now().UTC()}
}

type Handler func(ctx context.Context, ev Event)

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(h Handler) (cancel func())
}

// LocalBus delivers events to in-process subscribers in subscription order,
// on the publisher's goroutine.
type LocalBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[int]Handler)}
}

func (b *LocalBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Only returns a handler that ignores events whose kind is not listed.
func Only(h Handler, kinds ...Kind) Handler {
	return func(ctx context.Context, ev Event) {
		if slices.Contains(kinds, ev.Kind) {
			h(ctx, ev)
		}
	}
}
