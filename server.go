package main

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// server accepts TCP connections and runs one session per connection.
// The session constructor decides the mode: pull sessions share a
// message store, push sessions share a house.
type server struct {
	addr       string
	idle       time.Duration
	newSession func(out frameWriter) session
	log        zerolog.Logger

	ln net.Listener
	wg sync.WaitGroup

	mu     sync.Mutex
	active map[net.Conn]struct{}
}

func newServer(addr string, idle time.Duration, newSession func(out frameWriter) session, log zerolog.Logger) *server {
	return &server{
		addr:       addr,
		idle:       idle,
		newSession: newSession,
		log:        log,
		active:     make(map[net.Conn]struct{}),
	}
}

// listen binds the listen socket. Go's TCP listener already sets
// SO_REUSEADDR on Unix; the kernel manages the accept backlog.
func (s *server) listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.ln = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return nil
}

// serve accepts until the listener is closed.
func (s *server) serve() {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.track(nc, true)
		s.wg.Add(1)
		go s.handle(nc)
	}
}

func (s *server) handle(nc net.Conn) {
	defer s.wg.Done()
	defer s.track(nc, false)

	log := s.log.With().Str("peer", nc.RemoteAddr().String()).Logger()
	log.Debug().Msg("accepted")
	incr("connections", 1)

	c := newConn(nc, log)
	sess := s.newSession(c)
	go c.writer()
	c.reader(sess, s.idle)

	// Teardown order matters: release room memberships before closing
	// the send channel so no broadcast can race a closed channel.
	sess.close()
	close(c.send)

	decr("connections", 1)
	log.Debug().Msg("closed")
}

func (s *server) track(nc net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.active[nc] = struct{}{}
	} else {
		delete(s.active, nc)
	}
}

// close stops accepting, closes every live connection's socket, and
// waits for their sessions to finish tearing down.
func (s *server) close() {
	if s.ln != nil {
		s.ln.Close()
	}
	s.mu.Lock()
	for nc := range s.active {
		nc.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
