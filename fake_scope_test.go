package spanbridge

import (
	"sync"
	"time"
)

// fakeRegistry is an in-memory Scope implementation recording every
// registry call, keyed by fully qualified dotted metric name.
type fakeRegistry struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]int64
	levels   map[string]int64
	samples  map[string][]time.Duration
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		counters: map[string]int64{},
		gauges:   map[string]int64{},
		levels:   map[string]int64{},
		samples:  map[string][]time.Duration{},
	}
}

func (r *fakeRegistry) scope(name string) fakeScope {
	return fakeScope{reg: r, name: name}
}

func (r *fakeRegistry) counterValue(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name]
}

func (r *fakeRegistry) gaugeValue(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gauges[name]
}

func (r *fakeRegistry) levelValue(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[name]
}

func (r *fakeRegistry) timerSamples(name string) []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.samples[name]...)
}

// empty reports whether no registry call has been recorded at all.
func (r *fakeRegistry) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counters) == 0 && len(r.gauges) == 0 && len(r.levels) == 0 && len(r.samples) == 0
}

type fakeScope struct {
	reg  *fakeRegistry
	name string
}

func (s fakeScope) qualify(name string) string {
	switch {
	case s.name == "":
		return name
	case name == "":
		return s.name
	default:
		return s.name + "." + name
	}
}

func (s fakeScope) WithName(segment string) Scope {
	return fakeScope{reg: s.reg, name: s.qualify(segment)}
}

func (s fakeScope) Named(name string) Scope {
	return fakeScope{reg: s.reg, name: name}
}

func (s fakeScope) Counter(name string) Counter {
	return fakeCounter{reg: s.reg, name: s.qualify(name)}
}

func (s fakeScope) Gauge(name string) Gauge {
	return fakeGauge{reg: s.reg, name: s.qualify(name)}
}

func (s fakeScope) Timer(name string) Timer {
	return fakeTimer{reg: s.reg, name: s.qualify(name)}
}

func (s fakeScope) Level(name string) Level {
	return fakeLevel{reg: s.reg, name: s.qualify(name)}
}

type fakeCounter struct {
	reg  *fakeRegistry
	name string
}

func (c fakeCounter) Add(delta int64) {
	c.reg.mu.Lock()
	defer c.reg.mu.Unlock()
	c.reg.counters[c.name] += delta
}

type fakeGauge struct {
	reg  *fakeRegistry
	name string
}

func (g fakeGauge) Set(value int64) {
	g.reg.mu.Lock()
	defer g.reg.mu.Unlock()
	g.reg.gauges[g.name] = value
}

type fakeLevel struct {
	reg  *fakeRegistry
	name string
}

func (l fakeLevel) Adjust(delta int64) {
	l.reg.mu.Lock()
	defer l.reg.mu.Unlock()
	l.reg.levels[l.name] += delta
}

type fakeTimer struct {
	reg  *fakeRegistry
	name string
}

func (t fakeTimer) Start() TimeHandle {
	return TimeHandle{Started: time.Now()}
}

func (t fakeTimer) Stop(h TimeHandle) {
	t.reg.mu.Lock()
	defer t.reg.mu.Unlock()
	t.reg.samples[t.name] = append(t.reg.samples[t.name], time.Since(h.Started))
}
