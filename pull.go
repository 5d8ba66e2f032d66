package main

import (
	"fmt"

	"github.com/rs/zerolog"
)

// frameWriter writes one response frame, appending the terminator.
type frameWriter interface {
	writeFrame(text []byte) error
}

// session is the per-connection protocol state machine. handleFrame is
// called once per complete frame; close runs on connection teardown.
type session interface {
	handleFrame(frame []byte) error
	close()
}

type pullState int

const (
	awaitingHeaders pullState = iota
	awaitingBody
)

// pullSession serves the polling protocol: a headers frame either
// queries a room's history or, when it carries a broadcast flag,
// announces that the next frame is a raw message body to store.
type pullSession struct {
	out     frameWriter
	store   *msgStore
	state   pullState
	pending map[string]string
	log     zerolog.Logger
}

func newPullSession(out frameWriter, store *msgStore, log zerolog.Logger) *pullSession {
	return &pullSession{
		out:   out,
		store: store,
		state: awaitingHeaders,
		log:   log,
	}
}

func (s *pullSession) handleFrame(frame []byte) error {
	switch s.state {
	case awaitingBody:
		return s.handleSend(frame)
	default:
		return s.handleHeaders(frame)
	}
}

func (s *pullSession) handleHeaders(frame []byte) error {
	headers := parseHeaders(frame)
	if _, ok := headers["broadcast"]; ok {
		// The next frame is the message body, raw.
		s.pending = headers
		s.state = awaitingBody
		return nil
	}
	return s.handleQuery(headers)
}

func (s *pullSession) handleSend(frame []byte) error {
	room := s.pending["room"]
	msg := s.store.append(room, string(frame))
	s.pending = nil
	s.state = awaitingHeaders

	s.log.Debug().Str("room", room).Int64("ts", msg.timestamp).Msg("stored message")
	incr("messages", 1)
	return s.out.writeFrame([]byte("SUCCESS"))
}

func (s *pullSession) handleQuery(headers map[string]string) error {
	cursor, err := headerCursor(headers)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	room := headers["room"]

	// Bodies are written verbatim between the brackets, no separators
	// or escaping. An unknown room is an empty result, not an error.
	resp := []byte("[")
	count := 0
	for body := range s.store.since(room, cursor) {
		resp = append(resp, body...)
		count++
	}
	resp = append(resp, ']')

	s.log.Debug().Str("room", room).Int64("cursor", cursor).Int("returned", count).Msg("query")
	incr("queries", 1)
	return s.out.writeFrame(resp)
}

func (s *pullSession) close() {}
