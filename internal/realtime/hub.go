// Package realtime fans committed snapshots out to live subscribers, one
// topic per user+collection. Subscribers get the full ordered snapshot on
// every change rather than deltas; a slow subscriber sees the latest
// snapshot and may skip intermediate ones.
package realtime

import (
	"sync"
)

// Topic names a per-user collection, e.g. "users/<id>/todos".
func Topic(userID, collection string) string {
	return "users/" + userID + "/" + collection
}

type subscriber struct {
	ch     chan []byte
	closed bool
}

// Hub routes snapshots to subscribers. All methods are safe for concurrent
// use; Publish never blocks on a slow subscriber.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers for a topic. The returned channel delivers snapshots
// until cancel is called; cancel synchronously stops delivery, so no value
// is sent after it returns.
func (h *Hub) Subscribe(topic string) (<-chan []byte, func()) {
	sub := &subscriber{ch: make(chan []byte, 1)}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub.closed {
			return
		}
		sub.closed = true
		delete(h.topics[topic], sub)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
		close(sub.ch)
	}
	return sub.ch, cancel
}

// Publish delivers a snapshot to every subscriber of the topic. If a
// subscriber has not drained the previous snapshot it is replaced: only the
// latest state matters.
func (h *Hub) Publish(topic string, snapshot []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.topics[topic] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- snapshot:
		default:
			// Drop the stale snapshot, then deliver the new one.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snapshot:
			default:
			}
		}
	}
}

// SubscriberCount reports active subscribers on a topic (for tests).
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}
