package spanbridge

import "go.opentelemetry.io/otel/attribute"

// Reserved field names. These are the wire contract with instrumented code;
// changing any of them is a breaking change. All matches are case-sensitive.
//
// When both ScopeFullKey and ScopeKey appear on one record, the absolute
// name wins.
const (
	// ScopeKey appends a segment to the parent span's scope. String valued.
	ScopeKey = "metrics.scope"
	// ScopeFullKey names the span's scope absolutely, ignoring the parent.
	// String valued.
	ScopeFullKey = "metrics.scope.full"
	// ValueKey overrides the record's weight, which defaults to 1. Integer
	// valued.
	ValueKey = "metrics.value"
	// CounterKey adds the record's weight to the named counter. String
	// valued.
	CounterKey = "metrics.counter"
	// GaugeKey sets the named gauge to the record's weight. String valued.
	GaugeKey = "metrics.gauge"
	// TimeKey starts the named timer when a span opens and stops it when
	// the span closes. Ignored on events. String valued.
	TimeKey = "metrics.time"
	// LevelKey raises the named level by the record's weight when a span
	// opens and lowers it by the same weight when the span closes. Ignored
	// on events. String valued.
	LevelKey = "metrics.level"
)

type actionKind int

const (
	actionCounter actionKind = iota
	actionGauge
	actionTimer
	actionLevel
)

type action struct {
	kind actionKind
	name string
}

// instructions is the parsed meaning of one record's field set.
type instructions struct {
	relName   string
	hasRel    bool
	absName   string
	hasAbs    bool
	weight    int64
	hasWeight bool
	actions   []action
}

func (ins instructions) weightOrDefault() int64 {
	if ins.hasWeight {
		return ins.weight
	}
	return 1
}

// parseInstructions scans a record's attributes for the reserved field
// names. Unknown names produce nothing, as does a reserved name carrying a
// value of the wrong type. Naming and weight fields are singular with
// last-wins on duplicates; action fields accumulate in traversal order.
func parseInstructions(attrs []attribute.KeyValue) instructions {
	var ins instructions
	for _, kv := range attrs {
		switch string(kv.Key) {
		case ScopeKey:
			if kv.Value.Type() == attribute.STRING {
				ins.relName = kv.Value.AsString()
				ins.hasRel = true
			}
		case ScopeFullKey:
			if kv.Value.Type() == attribute.STRING {
				ins.absName = kv.Value.AsString()
				ins.hasAbs = true
			}
		case ValueKey:
			if kv.Value.Type() == attribute.INT64 {
				ins.weight = kv.Value.AsInt64()
				ins.hasWeight = true
			}
		case CounterKey:
			ins.addAction(actionCounter, kv.Value)
		case GaugeKey:
			ins.addAction(actionGauge, kv.Value)
		case TimeKey:
			ins.addAction(actionTimer, kv.Value)
		case LevelKey:
			ins.addAction(actionLevel, kv.Value)
		}
	}
	return ins
}

func (ins *instructions) addAction(kind actionKind, v attribute.Value) {
	if v.Type() != attribute.STRING {
		return
	}
	ins.actions = append(ins.actions, action{kind: kind, name: v.AsString()})
}
