// Package otelscope implements the spanbridge Scope interface over an
// OpenTelemetry meter.
//
// Scope names compose into dotted instrument names ("app.db.query").
// Instruments are created lazily on first use and cached; a creation
// failure is logged once and the instrument degrades to a no-op so callers
// never see an error.
package otelscope
