package main

import (
	"iter"
	"strings"
	"sync"
	"time"
)

// message is an immutable stored broadcast. Timestamps are wall-clock
// seconds; that resolution is part of the wire contract (clients poll
// with second-resolution cursors).
type message struct {
	timestamp int64
	body      string
}

// msgStore holds each room's bounded history for pull mode. Histories
// are ordered newest-first and capped at limit; appending to a full
// history evicts the oldest entry. Rooms are created on first append
// and live for the process lifetime.
type msgStore struct {
	mu    sync.RWMutex
	limit int
	rooms map[string][]message
	now   func() int64
}

func newStore(limit int) *msgStore {
	return &msgStore{
		limit: limit,
		rooms: make(map[string][]message),
		now:   func() int64 { return time.Now().Unix() },
	}
}

// append trims body, stamps it, and inserts it at the newest end of the
// room's history, evicting the oldest entry when full. Returns the
// stored message.
func (s *msgStore) append(room, body string) message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := message{timestamp: s.now(), body: strings.TrimSpace(body)}
	history := append([]message{msg}, s.rooms[room]...)
	if len(history) > s.limit {
		history = history[:s.limit]
	}
	s.rooms[room] = history
	return msg
}

// since returns the bodies of all messages in room newer than cursor,
// newest-first. The sequence is recomputed on every range; ranging it
// twice yields the same result. An unknown room yields nothing.
func (s *msgStore) since(room string, cursor int64) iter.Seq[string] {
	return func(yield func(string) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, msg := range s.rooms[room] {
			if msg.timestamp <= cursor {
				continue
			}
			if !yield(msg.body) {
				return
			}
		}
	}
}

// size reports the number of messages held for a room.
func (s *msgStore) size(room string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[room])
}
