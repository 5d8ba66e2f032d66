package main

import (
	"sync"
	"time"
)

// pingTicker fans one time.Ticker out to every gateway connection so
// the whole gateway shares a single ping schedule. Ticks a subscriber
// is not ready to receive are dropped; a missed ping is harmless.
type pingTicker struct {
	mu      sync.Mutex
	subs    map[*pingSub]struct{}
	ticker  *time.Ticker
	stopCh  chan struct{}
	stopped bool
	dropped int
}

type pingSub struct {
	tick chan time.Time
}

func newPingTicker(interval time.Duration) *pingTicker {
	t := &pingTicker{
		subs:   make(map[*pingSub]struct{}),
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	go t.run()
	return t
}

// subscribe returns a channel receiving ticks until unsubscribe or
// stop closes it.
func (t *pingTicker) subscribe() *pingSub {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub := &pingSub{tick: make(chan time.Time, 1)}
	if !t.stopped {
		t.subs[sub] = struct{}{}
	} else {
		close(sub.tick)
	}
	return sub
}

func (t *pingTicker) unsubscribe(sub *pingSub) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.subs[sub]; ok {
		close(sub.tick)
		delete(t.subs, sub)
	}
}

// stop halts the ticker and closes every subscribed channel.
func (t *pingTicker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	t.ticker.Stop()
	close(t.stopCh)
	for sub := range t.subs {
		close(sub.tick)
		delete(t.subs, sub)
	}
}

func (t *pingTicker) run() {
	for {
		select {
		case tick := <-t.ticker.C:
			t.mu.Lock()
			for sub := range t.subs {
				select {
				case sub.tick <- tick:
				default:
					t.dropped++
				}
			}
			t.mu.Unlock()
		case <-t.stopCh:
			return
		}
	}
}
