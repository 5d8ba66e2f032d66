package main

import (
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/facebookgo/httpdown"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	roomLenMin = 1
	roomLenMax = 256

	// Ping period must be shorter than the websocket read deadline.
	pingPeriod = (pongWait * 9) / 10
)

// gateway exposes push-mode rooms over HTTP: a websocket upgrade on
// /name joins room "name", and a POST to /name publishes its body
// there. It shares the house with the TCP server, so websocket and
// TCP subscribers see each other's broadcasts.
type gateway struct {
	house    *house
	upgrader *websocket.Upgrader
	pings    *pingTicker
	log      zerolog.Logger

	srv httpdown.Server
}

func newGateway(h *house, origin string, log zerolog.Logger) *gateway {
	upgrader := &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if origin != "" {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return r.Header.Get("Origin") == origin
		}
	}
	return &gateway{
		house:    h,
		upgrader: upgrader,
		pings:    newPingTicker(pingPeriod),
		log:      log,
	}
}

func (g *gateway) handler() http.Handler {
	r := mux.NewRouter()

	// Route websocket requests
	r.Headers(
		"Connection", "Upgrade",
		"Upgrade", "websocket",
	).HandlerFunc(g.serveWS)

	// Route plain POST publishes
	r.Methods("POST").HandlerFunc(g.servePost)

	return r
}

func (g *gateway) start(addr string) error {
	hd := &httpdown.HTTP{
		StopTimeout: 10 * time.Second,
		KillTimeout: 1 * time.Second,
	}
	srv, err := hd.ListenAndServe(&http.Server{Addr: addr, Handler: g.handler()})
	if err != nil {
		return fmt.Errorf("gateway listen %s: %w", addr, err)
	}
	g.srv = srv
	g.log.Info().Str("addr", addr).Msg("gateway listening")
	return nil
}

func (g *gateway) stop() {
	g.pings.stop()
	if g.srv != nil {
		g.srv.Stop()
	}
}

func (g *gateway) serveWS(w http.ResponseWriter, r *http.Request) {
	name, ok := g.roomName(w, r)
	if !ok {
		return
	}
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	wc := newWSConn(ws, g.log.With().Str("room", name).Logger())
	rm := g.house.subscribe(name, wc)
	incr("websockets", 1)

	sub := g.pings.subscribe()
	go wc.writer(sub)
	wc.reader(g.house, rm)

	// Same discipline as the TCP side: leave the room before the send
	// channel closes.
	g.house.drop([]*room{rm}, wc)
	g.pings.unsubscribe(sub)
	close(wc.send)
	decr("websockets", 1)
}

func (g *gateway) servePost(w http.ResponseWriter, r *http.Request) {
	name, ok := g.roomName(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, "Unable to read POST body.")
		return
	}
	g.house.broadcast([]*room{g.house.get(name)}, body, nil)
	incr("broadcasts", 1)
	w.Write([]byte("OK\n"))
}

// roomName validates the request path and returns the room it names.
func (g *gateway) roomName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.URL.Path
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	if !utf8.ValidString(name) {
		badRequest(w, "Room must be valid Unicode (UTF-8).")
		return "", false
	}
	nameLen := utf8.RuneCountInString(name)
	if !(roomLenMin <= nameLen && nameLen <= roomLenMax) {
		badRequest(w, fmt.Sprintf(
			"Room length must be %d-%d Unicode characters (UTF-8).",
			roomLenMin, roomLenMax))
		return "", false
	}
	return name, true
}

func badRequest(w http.ResponseWriter, str string) {
	http.Error(w,
		fmt.Sprintf("Error: bad request. %s", str),
		http.StatusBadRequest)
}
