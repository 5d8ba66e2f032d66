package main

import (
	"fmt"
	"testing"
)

// clockStore returns a store whose clock ticks forward one second per
// append, starting at 1.
func clockStore(limit int) *msgStore {
	s := newStore(limit)
	var now int64
	s.now = func() int64 {
		now++
		return now
	}
	return s
}

func collect(s *msgStore, room string, cursor int64) []string {
	var bodies []string
	for body := range s.since(room, cursor) {
		bodies = append(bodies, body)
	}
	return bodies
}

func TestStoreAppend(t *testing.T) {
	s := clockStore(10)
	msg := s.append("lobby", "  hello  ")
	if msg.body != "hello" {
		t.Fatal("Expectation: trimmed body, Received:", msg.body)
	}
	if msg.timestamp != 1 {
		t.Fatal("Expectation: timestamp 1, Received:", msg.timestamp)
	}
	if s.size("lobby") != 1 {
		t.Fatal("Expectation: 1, Received:", s.size("lobby"))
	}
}

func TestStoreEviction(t *testing.T) {
	s := clockStore(3)
	for i := 0; i < 5; i++ {
		s.append("lobby", fmt.Sprintf("m%d", i))
	}
	if s.size("lobby") != 3 {
		t.Fatal("Expectation: 3, Received:", s.size("lobby"))
	}

	// Newest-first, and only the three most recent survive.
	bodies := collect(s, "lobby", 0)
	if len(bodies) != 3 || bodies[0] != "m4" || bodies[1] != "m3" || bodies[2] != "m2" {
		t.Fatal("Expectation: m4 m3 m2, Received:", bodies)
	}
}

func TestStoreSinceCursor(t *testing.T) {
	s := clockStore(10)
	s.append("lobby", "one")   // ts 1
	s.append("lobby", "two")   // ts 2
	s.append("lobby", "three") // ts 3

	bodies := collect(s, "lobby", 2)
	if len(bodies) != 1 || bodies[0] != "three" {
		t.Fatal("Expectation: only three, Received:", bodies)
	}

	// Strictly greater than: cursor 3 returns nothing.
	if bodies = collect(s, "lobby", 3); len(bodies) != 0 {
		t.Fatal("Expectation: empty, Received:", bodies)
	}
}

func TestStoreSinceRestartable(t *testing.T) {
	s := clockStore(10)
	s.append("lobby", "hello")
	seq := s.since("lobby", 0)

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 1 || second != 1 {
		t.Fatal("Expectation: 1 and 1, Received:", first, second)
	}
}

func TestStoreUnknownRoom(t *testing.T) {
	s := clockStore(10)
	if bodies := collect(s, "never-seen", 0); len(bodies) != 0 {
		t.Fatal("Expectation: empty for unknown room, Received:", bodies)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := clockStore(10)
	s.append("r", "hello")
	bodies := collect(s, "r", 0)
	if len(bodies) != 1 || bodies[0] != "hello" {
		t.Fatal("Expectation: [hello], Received:", bodies)
	}
}

func TestStoreRoomsIndependent(t *testing.T) {
	s := clockStore(10)
	s.append("a", "for a")
	s.append("b", "for b")
	if bodies := collect(s, "a", 0); len(bodies) != 1 || bodies[0] != "for a" {
		t.Fatal("Expectation: [for a], Received:", bodies)
	}
}
