package phasetrace

import "time"

// Kind is the type of a phase event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat // periodic liveness signal
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeCommand Scope = iota + 1 // one codetrace subcommand
	ScopePhase                    // load, write, check
	ScopeFile                     // one input file of a multi-file command
)

func (s Scope) String() string {
	switch s {
	case ScopeCommand:
		return "command"
	case ScopePhase:
		return "phase"
	case ScopeFile:
		return "file"
	default:
		return "unknown"
	}
}

// Event is one phase trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // assigned by the tracer that stores the event
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for a root span
	Name     string // "convert", "load", "file:a.json"
	Detail   string
	Dur      time.Duration // set on KindSpanEnd
	Extra    map[string]string
}
