package spanbridge

import "time"

// Scope is a handle into a hierarchical, concurrency-safe metrics
// namespace. Scopes are cheap shared values; deriving a child never
// mutates the parent. Instruments are created on first use and all of
// their operations are infallible at the call site.
type Scope interface {
	// Counter returns the named monotonic counter under this scope.
	Counter(name string) Counter
	// Gauge returns the named gauge under this scope.
	Gauge(name string) Gauge
	// Timer returns the named duration timer under this scope.
	Timer(name string) Timer
	// Level returns the named adjustable level under this scope. A level
	// tracks a concurrently held quantity: raised on acquire, lowered by
	// the same amount on release.
	Level(name string) Level
	// WithName derives a child scope by appending a relative name segment.
	WithName(segment string) Scope
	// Named derives a scope by an absolute, fully-qualified name,
	// independent of this scope's position in the hierarchy.
	Named(name string) Scope
}

// Counter accumulates monotonically.
type Counter interface {
	Add(delta int64)
}

// Gauge holds the last value set.
type Gauge interface {
	Set(value int64)
}

// Level is a gauge-like instrument adjusted up and down.
type Level interface {
	Adjust(delta int64)
}

// Timer measures wall-clock durations between Start and Stop.
type Timer interface {
	// Start marks the beginning of one measurement.
	Start() TimeHandle
	// Stop records the elapsed duration since the handle's start. Each
	// handle must be stopped at most once.
	Stop(h TimeHandle)
}

// TimeHandle marks the start of one timer measurement. It is produced by
// Timer.Start and handed back verbatim to Timer.Stop.
type TimeHandle struct {
	Started time.Time
}

// resolveScope computes a new span's scope from the scope of its nearest
// recorded ancestor and the naming instructions on the span. An absolute
// rename beats a relative one when both are present; with neither, the
// parent scope is shared as-is.
func resolveScope(root, parent Scope, ins instructions) Scope {
	switch {
	case ins.hasAbs:
		return root.Named(ins.absName)
	case ins.hasRel:
		return parent.WithName(ins.relName)
	default:
		return parent
	}
}
