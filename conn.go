package main

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
)

const sendBuffer = 256

var errSendFull = errors.New("send buffer full")

// conn owns one TCP connection: a reader goroutine that reassembles
// frames and feeds the session, and a writer goroutine draining the
// buffered send channel. Either side failing closes the socket, which
// unblocks the other.
type conn struct {
	nc   net.Conn
	send chan []byte
	log  zerolog.Logger
}

func newConn(nc net.Conn, log zerolog.Logger) *conn {
	return &conn{
		nc:   nc,
		send: make(chan []byte, sendBuffer),
		log:  log,
	}
}

// writeFrame queues text plus the frame terminator for the writer.
// A full buffer means the peer has stopped draining; the caller treats
// that like any other write failure.
func (c *conn) writeFrame(text []byte) error {
	frame := make([]byte, 0, len(text)+len(delimiter))
	frame = append(frame, text...)
	frame = append(frame, delimiter...)
	select {
	case c.send <- frame:
		return nil
	default:
		return errSendFull
	}
}

func (c *conn) writer() {
	for frame := range c.send {
		if _, err := c.nc.Write(frame); err != nil {
			break
		}
		incr("conn.send", 1)
	}
	c.nc.Close()
}

// reader pumps the socket through the splitter and hands each complete
// frame to the session. Returns on peer close, I/O error, idle timeout,
// or a session protocol error.
func (c *conn) reader(sess session, idle time.Duration) {
	var split splitter
	buf := make([]byte, 4096)
	for {
		if idle > 0 {
			c.nc.SetReadDeadline(time.Now().Add(idle))
		}
		n, err := c.nc.Read(buf)
		if n > 0 {
			if ferr := c.dispatch(sess, split.feed(buf[:n])); ferr != nil {
				c.log.Warn().Err(ferr).Msg("closing connection")
				break
			}
		}
		if err != nil {
			break
		}
	}
	c.nc.Close()
}

func (c *conn) dispatch(sess session, frames [][]byte) error {
	for _, frame := range frames {
		incr("conn.recv", 1)
		if err := sess.handleFrame(frame); err != nil {
			return err
		}
	}
	return nil
}
