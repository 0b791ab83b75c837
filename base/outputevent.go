package base

import (
	"fmt"
)

// OutputEventKind is the type of notifications published by outputs
type OutputEventKind int

// Kinds of OutputEvent
const (
	OutputStarted OutputEventKind = iota + 1
	OutputResumed
	OutputFlushed
	OutputWriteAttempted
	OutputWriteSucceeded
	OutputWriteRetried
)

var outputEventKindNames = map[OutputEventKind]string{
	OutputStarted:        "Started",
	OutputResumed:        "Resumed",
	OutputFlushed:        "Flushed",
	OutputWriteAttempted: "WriteAttempted",
	OutputWriteSucceeded: "WriteSucceeded",
	OutputWriteRetried:   "WriteRetried",
}

func (kind OutputEventKind) String() string {
	if name, ok := outputEventKindNames[kind]; ok {
		return name
	}
	return fmt.Sprintf("OutputEventKind(%d)", int(kind))
}

// OutputEvent is a notification about the progress of an output
type OutputEvent struct {
	Kind   OutputEventKind
	Source string // Name of the output
}

func (event OutputEvent) String() string {
	return event.Kind.String() + "@" + event.Source
}

// EventSink receives output events
//
// OnOutputEvent is called from the serial loop of outputs and must not block
type EventSink interface {
	OnOutputEvent(event OutputEvent)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(event OutputEvent)

// OnOutputEvent calls the function itself
func (f EventSinkFunc) OnOutputEvent(event OutputEvent) {
	f(event)
}
