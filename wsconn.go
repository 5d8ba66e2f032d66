package main

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// wsConn adapts a websocket client into a room subscriber. Broadcasts
// arrive as single text messages; text messages the client sends are
// broadcast to its room.
type wsConn struct {
	ws   *websocket.Conn
	send chan []byte
	log  zerolog.Logger
}

func newWSConn(ws *websocket.Conn, log zerolog.Logger) *wsConn {
	return &wsConn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		log:  log,
	}
}

func (w *wsConn) deliver(text []byte) error {
	select {
	case w.send <- text:
		return nil
	default:
		return errSendFull
	}
}

func (w *wsConn) reader(h *house, r *room) {
	w.ws.SetReadLimit(maxMessageSize)
	w.ws.SetReadDeadline(time.Now().Add(pongWait))
	w.ws.SetPongHandler(func(string) error {
		return w.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, text, err := w.ws.ReadMessage()
		if err != nil {
			break
		}
		incr("ws.recv", 1)
		h.broadcast([]*room{r}, text, w)
	}
	w.ws.Close()
}

func (w *wsConn) writer(pings *pingSub) {
	ticks := pings.tick
	for {
		select {
		case text, ok := <-w.send:
			if !ok {
				w.ws.Close()
				return
			}
			w.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.ws.WriteMessage(websocket.TextMessage, text); err != nil {
				w.ws.Close()
				return
			}
			incr("ws.send", 1)
		case _, ok := <-ticks:
			if !ok {
				// Gateway is stopping; pings end but sends drain.
				ticks = nil
				continue
			}
			w.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.ws.Close()
				return
			}
		}
	}
}
