package spanbridge

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/trace"
)

// spanContext is the per-span bookkeeping created when a span starts and
// discarded when it ends. Only the span lifecycle handlers touch it: no
// other code path may create or delete one.
type spanContext struct {
	scope Scope

	// weight is the span's declared value, captured at creation. The close
	// handler reuses this exact value when lowering the level.
	weight int64

	// timer and timerStart are set iff a metrics.time field fired at span
	// creation. Stopped exactly once, at span end.
	timer      Timer
	timerStart TimeHandle

	// level is set iff a metrics.level field fired at span creation.
	// Lowered exactly once, at span end.
	level Level
}

// contextStore maps span identity to its spanContext. Insertions happen at
// span start, read-only lookups at event time (possibly from other
// goroutines), and a single exclusive removal at span end.
type contextStore struct {
	entries *gocache.Cache
}

// newContextStore builds a store. With expiry > 0, entries of spans that
// are never closed are evicted after roughly that duration; their timers
// and levels are still lost, eviction only bounds memory.
func newContextStore(expiry time.Duration) *contextStore {
	ttl := gocache.NoExpiration
	cleanup := time.Duration(0)
	if expiry > 0 {
		ttl = expiry
		cleanup = expiry
	}
	return &contextStore{entries: gocache.New(ttl, cleanup)}
}

func spanKey(sc trace.SpanContext) string {
	return sc.TraceID().String() + "-" + sc.SpanID().String()
}

func (s *contextStore) put(sc trace.SpanContext, c *spanContext) {
	s.entries.SetDefault(spanKey(sc), c)
}

func (s *contextStore) lookup(sc trace.SpanContext) (*spanContext, bool) {
	v, ok := s.entries.Get(spanKey(sc))
	if !ok {
		return nil, false
	}
	return v.(*spanContext), true
}

// take removes and returns the context for the ending span. Under correct
// lifecycle usage no two removals race on the same identity.
func (s *contextStore) take(sc trace.SpanContext) (*spanContext, bool) {
	key := spanKey(sc)
	v, ok := s.entries.Get(key)
	if !ok {
		return nil, false
	}
	s.entries.Delete(key)
	return v.(*spanContext), true
}

func (s *contextStore) clear() {
	s.entries.Flush()
}
