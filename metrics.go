package main

import (
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// metrics wraps a go-metrics registry with periodic JSON reports.
// Built explicitly at startup and installed with use(); before that,
// incr and decr are no-ops, which keeps tests quiet.
type metrics struct {
	out  io.Writer
	reg  gometrics.Registry
	tick time.Duration
}

var m *metrics

func newMetrics(out io.Writer, tick time.Duration) *metrics {
	return &metrics{
		out:  out,
		reg:  gometrics.NewRegistry(),
		tick: tick,
	}
}

func (mm *metrics) use() {
	m = mm
}

func (mm *metrics) start() {
	go gometrics.WriteJSON(mm.reg, mm.tick, mm.out)
}

func (mm *metrics) writeOnce() {
	gometrics.WriteJSONOnce(mm.reg, mm.out)
}

func incr(name string, i int64) {
	if m == nil {
		return
	}
	gometrics.GetOrRegisterCounter(name, m.reg).Inc(i)
}

func decr(name string, i int64) {
	if m == nil {
		return
	}
	gometrics.GetOrRegisterCounter(name, m.reg).Dec(i)
}
