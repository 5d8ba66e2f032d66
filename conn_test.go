package main

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestConnWriterAppendsDelimiter(t *testing.T) {
	peer, side := net.Pipe()
	defer peer.Close()

	c := newConn(side, zerolog.Nop())
	go c.writer()

	if err := c.writeFrame([]byte("DONE")); err != nil {
		t.Fatal("Expectation: nil error, Received:", err)
	}

	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, len("DONE\r\n\r\n"))
	if _, err := io.ReadFull(peer, buf); err != nil {
		t.Fatal("read:", err)
	}
	if string(buf) != "DONE\r\n\r\n" {
		t.Fatal("Expectation: DONE\\r\\n\\r\\n, Received:", string(buf))
	}

	close(c.send)
}

func TestConnWriteFrameBufferFull(t *testing.T) {
	peer, side := net.Pipe()
	defer peer.Close()
	defer side.Close()

	// No writer goroutine draining, so the buffer eventually fills.
	c := newConn(side, zerolog.Nop())
	for i := 0; i < sendBuffer; i++ {
		if err := c.writeFrame([]byte("x")); err != nil {
			t.Fatal("Expectation: nil error while buffer has room, Received:", err)
		}
	}
	if err := c.writeFrame([]byte("x")); !errors.Is(err, errSendFull) {
		t.Fatal("Expectation: errSendFull, Received:", err)
	}
}

// errSession fails on the second frame, proving dispatch stops there.
type errSession struct {
	frames int
}

func (s *errSession) handleFrame(frame []byte) error {
	s.frames++
	if s.frames > 1 {
		return errors.New("boom")
	}
	return nil
}

func (s *errSession) close() {}

func TestConnDispatchStopsOnSessionError(t *testing.T) {
	c := newConn(nil, zerolog.Nop())
	sess := &errSession{}

	frames := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	if err := c.dispatch(sess, frames); err == nil {
		t.Fatal("Expectation: session error surfaced, Received: nil")
	}
	if sess.frames != 2 {
		t.Fatal("Expectation: 2 frames handled, Received:", sess.frames)
	}
}
