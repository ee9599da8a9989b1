// Package progress carries step lifecycle events from the tool engine to
// whatever displays them.
package progress

import "time"

// Stage is the orchestration operation an event belongs to.
type Stage string

const (
	StageUpdate Stage = "update"
	StageLint   Stage = "lint"
	StageFormat Stage = "format"
)

// Status captures progress state of a tool or step.
type Status string

const (
	// StatusQueued indicates the tool is waiting to start.
	StatusQueued Status = "queued"
	// StatusStarted marks the beginning of a step; Step holds its description.
	StatusStarted Status = "started"
	// StatusWorking carries a status line produced while a step runs.
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a step, or for the whole tool when Step is empty.
type Event struct {
	Tool    string
	Step    string
	Stage   Stage
	Status  Status
	Message string
	Err     error
	Elapsed time.Duration
}

// Sink consumes progress events. Implementations must tolerate calls from
// the two stream drains of a step at once.
type Sink interface {
	OnEvent(Event)
}

// Nop discards every event.
var Nop Sink = nopSink{}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
