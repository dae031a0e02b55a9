// Package notification provides the hub that fans queue updates out to observers.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playqueue/internal/domain/queue"
)

// Subscription is a single observer's update stream.
type Subscription struct {
	id      string
	ch      chan queue.Update
	dropped uint64
}

// ID returns the subscription ID.
func (s *Subscription) ID() string {
	return s.id
}

// Updates returns the update channel. It is closed on Unsubscribe or Close.
func (s *Subscription) Updates() <-chan queue.Update {
	return s.ch
}

// Hub broadcasts queue updates to any number of subscribers. Late
// subscribers immediately receive the latest state. Sends never block:
// a subscriber whose buffer is full misses the update.
type Hub struct {
	mu            sync.Mutex
	subscriptions map[string]*Subscription
	latest        *queue.Update
	buffer        int
	closed        bool
}

// NewHub creates a hub whose subscriptions buffer up to buffer updates.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subscriptions: make(map[string]*Subscription),
		buffer:        buffer,
	}
}

// Subscribe adds a new subscription.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		id: uuid.New().String(),
		ch: make(chan queue.Update, h.buffer),
	}
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subscriptions[sub.id] = sub

	if h.latest != nil {
		// Replay state only; the event that produced it is history.
		sub.ch <- queue.Update{State: h.latest.State, Current: h.latest.Current}
	}
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(subscriptionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscriptions[subscriptionID]; ok {
		delete(h.subscriptions, subscriptionID)
		close(sub.ch)
	}
}

// Publish records u as the latest update and delivers it to every subscriber.
func (h *Hub) Publish(u queue.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.latest = &u

	for _, sub := range h.subscriptions {
		select {
		case sub.ch <- u:
		default:
			sub.dropped++
			zlog.Debug().Msgf("notification: subscriber too slow, dropped update: subscription_id=%s dropped=%d", sub.id, sub.dropped)
		}
	}
}

// Latest returns the most recently published update.
func (h *Hub) Latest() (queue.Update, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.latest == nil {
		return queue.Update{}, false
	}
	return *h.latest, true
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscriptions)
}

// Close closes every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscriptions {
		close(sub.ch)
		delete(h.subscriptions, id)
	}
}
