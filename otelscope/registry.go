package otelscope

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fosrl/spanbridge"
)

var background = context.Background()

// Registry creates OpenTelemetry instruments on first use and hands out
// hierarchical scopes over them. All methods are safe for concurrent use;
// instrument caches are sync.Maps so the hot path stays lock-free after
// first creation.
type Registry struct {
	meter  metric.Meter
	logger *zap.Logger

	counters sync.Map // string -> counter
	gauges   sync.Map // string -> gauge
	levels   sync.Map // string -> level
	timers   sync.Map // string -> timer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report instrument creation failures.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a Registry over meter.
func New(meter metric.Meter, opts ...Option) *Registry {
	r := &Registry{
		meter:  meter,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the scope at the top of the namespace.
func (r *Registry) Root() spanbridge.Scope {
	return scope{reg: r}
}

// Scope returns the scope under the given dotted name.
func (r *Registry) Scope(name string) spanbridge.Scope {
	return scope{reg: r, name: name}
}

// scope is an immutable value carrying a dotted name prefix. Deriving a
// child copies the value, so handles can be shared freely across spans and
// goroutines.
type scope struct {
	reg  *Registry
	name string
}

func (s scope) qualify(name string) string {
	switch {
	case s.name == "":
		return name
	case name == "":
		return s.name
	default:
		return s.name + "." + name
	}
}

func (s scope) WithName(segment string) spanbridge.Scope {
	return scope{reg: s.reg, name: s.qualify(segment)}
}

func (s scope) Named(name string) spanbridge.Scope {
	return scope{reg: s.reg, name: name}
}

func (s scope) Counter(name string) spanbridge.Counter {
	return s.reg.counter(s.qualify(name))
}

func (s scope) Gauge(name string) spanbridge.Gauge {
	return s.reg.gauge(s.qualify(name))
}

func (s scope) Timer(name string) spanbridge.Timer {
	return s.reg.timer(s.qualify(name))
}

func (s scope) Level(name string) spanbridge.Level {
	return s.reg.level(s.qualify(name))
}

func (r *Registry) counter(name string) counter {
	if v, ok := r.counters.Load(name); ok {
		return v.(counter)
	}
	inst, err := r.meter.Int64Counter(name)
	if err != nil {
		r.logger.Error("create counter", zap.String("name", name), zap.Error(err))
	}
	v, _ := r.counters.LoadOrStore(name, counter{inst: inst})
	return v.(counter)
}

func (r *Registry) gauge(name string) gauge {
	if v, ok := r.gauges.Load(name); ok {
		return v.(gauge)
	}
	inst, err := r.meter.Int64Gauge(name)
	if err != nil {
		r.logger.Error("create gauge", zap.String("name", name), zap.Error(err))
	}
	v, _ := r.gauges.LoadOrStore(name, gauge{inst: inst})
	return v.(gauge)
}

func (r *Registry) level(name string) level {
	if v, ok := r.levels.Load(name); ok {
		return v.(level)
	}
	inst, err := r.meter.Int64UpDownCounter(name)
	if err != nil {
		r.logger.Error("create level", zap.String("name", name), zap.Error(err))
	}
	v, _ := r.levels.LoadOrStore(name, level{inst: inst})
	return v.(level)
}

func (r *Registry) timer(name string) timer {
	if v, ok := r.timers.Load(name); ok {
		return v.(timer)
	}
	inst, err := r.meter.Float64Histogram(name,
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(LatencyBucketsSeconds...),
	)
	if err != nil {
		r.logger.Error("create timer", zap.String("name", name), zap.Error(err))
	}
	v, _ := r.timers.LoadOrStore(name, timer{inst: inst})
	return v.(timer)
}

// The instrument wrappers tolerate a nil instrument so a creation failure
// degrades to a no-op instead of propagating errors to record handling.

type counter struct {
	inst metric.Int64Counter
}

func (c counter) Add(delta int64) {
	if c.inst == nil || delta == 0 {
		return
	}
	c.inst.Add(background, delta)
}

type gauge struct {
	inst metric.Int64Gauge
}

func (g gauge) Set(value int64) {
	if g.inst == nil {
		return
	}
	g.inst.Record(background, value)
}

type level struct {
	inst metric.Int64UpDownCounter
}

func (l level) Adjust(delta int64) {
	if l.inst == nil || delta == 0 {
		return
	}
	l.inst.Add(background, delta)
}

type timer struct {
	inst metric.Float64Histogram
}

func (t timer) Start() spanbridge.TimeHandle {
	return spanbridge.TimeHandle{Started: time.Now()}
}

func (t timer) Stop(h spanbridge.TimeHandle) {
	if t.inst == nil || h.Started.IsZero() {
		return
	}
	t.inst.Record(background, time.Since(h.Started).Seconds())
}
