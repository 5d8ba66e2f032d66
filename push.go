package main

import (
	"github.com/rs/zerolog"
)

// pushSession serves the live-broadcast protocol. Every frame is a full
// command; the add-room, remove-room and broadcast actions are applied
// in that order when present, then the session answers DONE.
type pushSession struct {
	out   frameWriter
	house *house
	rooms []*room
	log   zerolog.Logger
}

func newPushSession(out frameWriter, h *house, log zerolog.Logger) *pushSession {
	return &pushSession{
		out:   out,
		house: h,
		log:   log,
	}
}

// deliver makes the session a subscriber: broadcasts reach its peer
// through the connection's writer.
func (s *pushSession) deliver(text []byte) error {
	return s.out.writeFrame(text)
}

func (s *pushSession) handleFrame(frame []byte) error {
	headers := parseHeaders(frame)

	if v, ok := headers["add-room"]; ok {
		s.addRooms(splitList(v))
	}
	if v, ok := headers["remove-room"]; ok {
		s.removeRooms(splitList(v))
	}
	if _, ok := headers["broadcast"]; ok {
		s.broadcast(headers)
	}

	return s.out.writeFrame([]byte("DONE"))
}

func (s *pushSession) addRooms(names []string) {
	for _, name := range names {
		r := s.house.subscribe(name, s)
		if !s.subscribed(r) {
			s.rooms = append(s.rooms, r)
		}
		s.log.Debug().Str("room", name).Msg("joined room")
	}
}

func (s *pushSession) removeRooms(names []string) {
	for _, name := range names {
		if !s.house.unsubscribe(name, s) {
			s.log.Debug().Str("room", name).Msg("remove-room: not a member")
		}
		s.forget(name)
	}
}

// broadcast relays the message value to an explicit room list when the
// room header is present, otherwise to every room the session joined.
// Explicit rooms need no membership; subscription and broadcast are
// deliberately independent.
func (s *pushSession) broadcast(headers map[string]string) {
	rooms := s.rooms
	if v, ok := headers["room"]; ok {
		rooms = nil
		for _, name := range splitList(v) {
			rooms = append(rooms, s.house.get(name))
		}
	}
	s.house.broadcast(rooms, []byte(headers["message"]), s)
	incr("broadcasts", 1)
}

func (s *pushSession) subscribed(r *room) bool {
	for _, have := range s.rooms {
		if have == r {
			return true
		}
	}
	return false
}

func (s *pushSession) forget(name string) {
	for i, r := range s.rooms {
		if r.name == name {
			s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
			return
		}
	}
}

// close releases every room membership so a dead connection never
// lingers as a stale subscriber.
func (s *pushSession) close() {
	s.house.drop(s.rooms, s)
	s.rooms = nil
}
