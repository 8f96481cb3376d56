// Package spanbridge translates reserved metrics.* fields on spans and
// events into calls against a hierarchical metrics registry.
//
// The package plugs into the OpenTelemetry trace SDK as a span processor.
// When a span starts, its attributes are scanned for the reserved field
// names: the span's metric scope is derived from its nearest recorded
// ancestor (or the root scope), timers are started, levels raised, and
// counters and gauges written. When the span ends, the started timer is
// stopped and the raised level lowered by the same weight. Events pass
// through Processor.Event and write counters and gauges against the scope
// of whatever span is active in their context.
//
// The registry itself is abstracted behind the Scope interface; package
// otelscope provides the OpenTelemetry-backed implementation.
package spanbridge
