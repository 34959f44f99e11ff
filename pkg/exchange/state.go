package exchange

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/shmx/internal/logging"
)

// State is a step of the export or import state machine.
//
// Export: Idle -> Sizing -> Mapped -> Written -> Closed.
// Import: Idle -> Opened -> Mapped -> HeaderRead -> TagVerified ->
// PayloadRead -> Destroyed. Either may end in Failed.
type State int

const (
	StateIdle State = iota
	StateSizing
	StateOpened
	StateMapped
	StateWritten
	StateHeaderRead
	StateTagVerified
	StatePayloadRead
	StateClosed
	StateDestroyed
	StateFailed
)

var stateNames = [...]string{
	StateIdle:        "Idle",
	StateSizing:      "Sizing",
	StateOpened:      "Opened",
	StateMapped:      "Mapped",
	StateWritten:     "Written",
	StateHeaderRead:  "HeaderRead",
	StateTagVerified: "TagVerified",
	StatePayloadRead: "PayloadRead",
	StateClosed:      "Closed",
	StateDestroyed:   "Destroyed",
	StateFailed:      "Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(?)"
}

// transitions records the path through one state machine run.
type transitions struct {
	op     string
	span   trace.Span
	logger *logging.Logger
	path   []State
}

func newTransitions(op string, span trace.Span, logger *logging.Logger) *transitions {
	return &transitions{op: op, span: span, logger: logger, path: []State{StateIdle}}
}

func (t *transitions) enter(s State) {
	t.logger.Tracef("%s: %s -> %s", t.op, t.current(), s)
	t.path = append(t.path, s)
	t.span.AddEvent(s.String(), trace.WithAttributes(attribute.String("shmx.op", t.op)))
}

func (t *transitions) current() State {
	return t.path[len(t.path)-1]
}
