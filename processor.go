package spanbridge

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Compile-time check that Processor implements SpanProcessor.
var _ sdktrace.SpanProcessor = (*Processor)(nil)

// Processor is the bridge between a span stream and a metrics registry.
// Register it on a trace provider and it will interpret the reserved
// metrics.* attributes on every recorded span; call Event for point-in-time
// records.
//
// A span may carry several metrics.time or metrics.level fields; each is
// applied at start, but only the last-applied timer and level are retained
// for the close-time stop and revert.
type Processor struct {
	root   Scope
	store  *contextStore
	logger *zap.Logger
	expiry time.Duration
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for lifecycle diagnostics. The record
// hot path never logs.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSpanExpiry evicts bookkeeping for spans that are never closed after
// roughly d. Eviction only bounds memory: the leaked span's timer is never
// stopped and its level never lowered. With an expiry configured, a span
// closing without stored bookkeeping is logged instead of treated as a
// lifecycle violation, since eviction is indistinguishable from one.
func WithSpanExpiry(d time.Duration) Option {
	return func(p *Processor) {
		p.expiry = d
	}
}

// New builds a Processor writing metrics under root. The root scope is the
// fallback namespace for records outside any span and the base for
// absolute renames.
func New(root Scope, opts ...Option) *Processor {
	p := &Processor{
		root:   root,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.store = newContextStore(p.expiry)
	return p
}

// OnStart resolves the new span's scope from its nearest recorded
// ancestor, applies the metric instructions on its attributes, and stores
// the span's bookkeeping for event handling and close.
func (p *Processor) OnStart(_ context.Context, span sdktrace.ReadWriteSpan) {
	parent := p.root
	if psc := span.Parent(); psc.IsValid() {
		if pc, ok := p.store.lookup(psc); ok {
			parent = pc.scope
		}
	}

	ins := parseInstructions(span.Attributes())
	sc := &spanContext{
		scope:  resolveScope(p.root, parent, ins),
		weight: ins.weightOrDefault(),
	}
	p.applySpanActions(sc, ins)
	p.store.put(span.SpanContext(), sc)
}

// applySpanActions fires the metric instructions of a starting span.
// Counters and gauges are fire-and-forget; timers and levels retain their
// handle on sc for the close-time stop and revert, the last-applied one
// winning when a span declares several.
func (p *Processor) applySpanActions(sc *spanContext, ins instructions) {
	for _, act := range ins.actions {
		switch act.kind {
		case actionTimer:
			t := sc.scope.Timer(act.name)
			sc.timer = t
			sc.timerStart = t.Start()
		case actionLevel:
			l := sc.scope.Level(act.name)
			l.Adjust(sc.weight)
			sc.level = l
		case actionCounter:
			sc.scope.Counter(act.name).Add(sc.weight)
		case actionGauge:
			sc.scope.Gauge(act.name).Set(sc.weight)
		}
	}
}

// Event applies counter and gauge instructions from attrs against the
// scope of the span active in ctx, falling back to the root scope when no
// span is active. Timer and level fields only make sense at span
// granularity and are ignored here.
func (p *Processor) Event(ctx context.Context, attrs ...attribute.KeyValue) {
	scope := p.root
	if ssc := trace.SpanContextFromContext(ctx); ssc.IsValid() {
		if c, ok := p.store.lookup(ssc); ok {
			scope = c.scope
		}
	}

	ins := parseInstructions(attrs)
	weight := ins.weightOrDefault()
	for _, act := range ins.actions {
		switch act.kind {
		case actionCounter:
			scope.Counter(act.name).Add(weight)
		case actionGauge:
			scope.Gauge(act.name).Set(weight)
		}
	}
}

// OnEnd removes the ending span's bookkeeping, stops its open timer with
// the start handle captured at creation, and lowers its open level by the
// weight captured at creation.
//
// A span ending without stored bookkeeping means the tracer violated the
// start/close pairing this bridge depends on; that is a programming error
// and panics. With WithSpanExpiry the entry may simply have been evicted,
// so the miss is logged instead.
func (p *Processor) OnEnd(span sdktrace.ReadOnlySpan) {
	ssc := span.SpanContext()
	sc, ok := p.store.take(ssc)
	if !ok {
		if p.expiry > 0 {
			p.logger.Error("span ended without stored metrics bookkeeping; entry expired or span never started",
				zap.String("trace_id", ssc.TraceID().String()),
				zap.String("span_id", ssc.SpanID().String()),
			)
			return
		}
		panic(fmt.Sprintf("spanbridge: span %s ended without stored bookkeeping; start/close pairing violated", ssc.SpanID()))
	}

	if sc.timer != nil {
		sc.timer.Stop(sc.timerStart)
	}
	if sc.level != nil {
		sc.level.Adjust(-sc.weight)
	}
}

// Shutdown discards all stored span bookkeeping.
func (p *Processor) Shutdown(context.Context) error {
	p.store.clear()
	return nil
}

// ForceFlush is a no-op; measurements are written as records arrive.
func (p *Processor) ForceFlush(context.Context) error {
	return nil
}
