package main

import (
	"sync"

	"github.com/rs/zerolog"
)

// subscriber is anything that can receive a broadcast. The TCP
// connection and the gateway websocket connection both implement it.
// Membership is by identity: the same subscriber joins a room once.
type subscriber interface {
	deliver(text []byte) error
}

// room is a named set of live subscribers, kept in join order.
type room struct {
	name string
	subs []subscriber
}

// subscribe adds s unless it is already a member.
func (r *room) subscribe(s subscriber) {
	for _, sub := range r.subs {
		if sub == s {
			return
		}
	}
	r.subs = append(r.subs, s)
}

// unsubscribe removes s and reports whether it was a member. An absent
// subscriber is a normal no-op, not a fault.
func (r *room) unsubscribe(s subscriber) bool {
	for i, sub := range r.subs {
		if sub == s {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return true
		}
	}
	return false
}

// broadcast delivers text to every subscriber except sender, in join
// order. A failed delivery is counted and logged but never stops the
// rest, and never removes the subscriber; only an explicit unsubscribe
// or connection teardown does that.
func (r *room) broadcast(text []byte, sender subscriber, log zerolog.Logger) {
	for _, sub := range r.subs {
		if sub == sender {
			continue
		}
		if err := sub.deliver(text); err != nil {
			incr("broadcast.drops", 1)
			log.Warn().Err(err).Str("room", r.name).Msg("dropped broadcast to subscriber")
			continue
		}
		incr("broadcast.sends", 1)
	}
}

// house is push mode's room registry. Rooms are created on first
// reference and never evicted, even when empty. One house serves one
// server; all access goes through its mutex, which stands in for the
// original's single reactor thread.
type house struct {
	mu    sync.Mutex
	rooms map[string]*room
	log   zerolog.Logger
}

func newHouse(log zerolog.Logger) *house {
	return &house{
		rooms: make(map[string]*room),
		log:   log,
	}
}

// get returns the room for name, creating it if needed. Never fails.
func (h *house) get(name string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.room(name)
}

func (h *house) room(name string) *room {
	r, ok := h.rooms[name]
	if !ok {
		r = &room{name: name}
		h.rooms[name] = r
		incr("rooms", 1)
	}
	return r
}

// subscribe joins s to the named room and returns the room.
func (h *house) subscribe(name string, s subscriber) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.room(name)
	r.subscribe(s)
	return r
}

// unsubscribe removes s from the named room, reporting membership.
// Unknown rooms still spring into existence; the original resolved
// them through the same lazy lookup.
func (h *house) unsubscribe(name string, s subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.room(name).unsubscribe(s)
}

// drop removes s from each of the given rooms. Used by the session
// close hook so a dead connection leaves no stale memberships behind.
func (h *house) drop(rooms []*room, s subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range rooms {
		r.unsubscribe(s)
	}
}

// broadcast fans text out to each room, excluding sender.
func (h *house) broadcast(rooms []*room, text []byte, sender subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range rooms {
		r.broadcast(text, sender, h.log)
	}
}
