// Package pubsub implements channel -> subscriber fan-out: plain
// channel subscriptions only, no pattern matching.
package pubsub

import (
	"sync"

	"github.com/kirov7/kuloydis/resp"
)

// Subscriber is a per-connection delivery queue. PUBLISH enqueues while
// holding the keyspace-wide mutex; the actual socket write happens
// elsewhere, outside that lock.
type Subscriber struct {
	ID     uint64
	Outbox chan resp.Value
}

func NewSubscriber(id uint64, queueDepth int) *Subscriber {
	return &Subscriber{ID: id, Outbox: make(chan resp.Value, queueDepth)}
}

// MessageFrame builds the ["message", channel, payload] array PUBLISH
// delivers to each subscriber.
func MessageFrame(channel string, payload []byte) resp.Value {
	return resp.Value{Kind: resp.Array, Array: []resp.Value{
		{Kind: resp.Bulk, Str: []byte("message")},
		{Kind: resp.Bulk, Str: []byte(channel)},
		{Kind: resp.Bulk, Str: payload},
	}}
}

// Hub is the channel -> ordered-subscriber-set registry.
type Hub struct {
	mu       sync.Mutex
	channels map[string][]*Subscriber
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string][]*Subscriber)}
}

// Subscribe adds sub to channel's subscriber list in arrival order,
// unless it is already present.
func (h *Hub) Subscribe(channel string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.channels[channel] {
		if s == sub {
			return
		}
	}
	h.channels[channel] = append(h.channels[channel], sub)
}

// Unsubscribe removes sub from channel, pruning the channel entry once it
// is empty.
func (h *Hub) Unsubscribe(channel string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.channels[channel]
	for i, s := range list {
		if s == sub {
			h.channels[channel] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(h.channels[channel]) == 0 {
		delete(h.channels, channel)
	}
}

// Publish enqueues payload on every current subscriber of channel, in
// subscription order, and returns the subscriber count. A full outbox
// drops the oldest pending frame rather than
// blocking the publisher, since delivery is best-effort once queued.
func (h *Hub) Publish(channel string, payload []byte) int {
	h.mu.Lock()
	subs := append([]*Subscriber(nil), h.channels[channel]...)
	h.mu.Unlock()

	frame := MessageFrame(channel, payload)
	for _, s := range subs {
		select {
		case s.Outbox <- frame:
		default:
			select {
			case <-s.Outbox:
			default:
			}
			select {
			case s.Outbox <- frame:
			default:
			}
		}
	}
	return len(subs)
}
