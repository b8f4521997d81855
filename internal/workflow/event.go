package workflow

import "time"

// EventKind identifies a controller state change.
type EventKind string

const (
	EventCompleted EventKind = "completed"
	EventSkipped   EventKind = "skipped"
	EventMoved     EventKind = "moved"
	EventBack      EventKind = "back"
)

// Event describes one state change. Step is the step the operation acted on;
// From and To are the current index before and after. Result is set on
// completion events only.
type Event struct {
	Kind       EventKind
	Step       int
	StepKey    StepKey
	From       int
	To         int
	ResultKind string
	Result     Result
	At         time.Time
}

// Observer receives controller events synchronously, in order.
type Observer func(Event)
