// Package history implements the per-session change event log backing
// undo/redo, the change applier, and the concurrent session store with its
// flush and reaper workers.
package history

import (
	"errors"

	"github.com/yourorg/strategy-sync/internal/model"
)

var (
	// ErrSessionNotFound is returned for operations on ended or unknown sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNothingToUndo is returned when the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned when the redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultMaxDepth caps a session's undo stack unless configured otherwise.
const DefaultMaxDepth = 100

// EventLog holds one session's undo and redo stacks, newest first. It is
// not safe for concurrent use; the store serializes access per session.
type EventLog struct {
	undo     []model.ChangeEvent
	redo     []model.ChangeEvent
	maxDepth int
}

// NewEventLog creates a log capped at maxDepth entries (DefaultMaxDepth
// when maxDepth <= 0).
func NewEventLog(maxDepth int) *EventLog {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &EventLog{maxDepth: maxDepth}
}

// Push prepends an event to the undo stack and clears the redo stack: any
// new edit invalidates the redo history. When the stack is full the oldest
// entry is dropped silently.
func (l *EventLog) Push(event model.ChangeEvent) {
	l.undo = append([]model.ChangeEvent{event}, l.undo...)
	if len(l.undo) > l.maxDepth {
		l.undo = l.undo[:l.maxDepth]
	}
	l.redo = nil
}

// Undo pops the newest event off the undo stack onto the redo stack and
// returns it.
func (l *EventLog) Undo() (*model.ChangeEvent, error) {
	if len(l.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	event := l.undo[0]
	l.undo = l.undo[1:]
	l.redo = append([]model.ChangeEvent{event}, l.redo...)
	return &event, nil
}

// Redo pops the newest event off the redo stack back onto the undo stack
// and returns it.
func (l *EventLog) Redo() (*model.ChangeEvent, error) {
	if len(l.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	event := l.redo[0]
	l.redo = l.redo[1:]
	l.undo = append([]model.ChangeEvent{event}, l.undo...)
	return &event, nil
}

// CanUndo reports whether the undo stack is non-empty.
func (l *EventLog) CanUndo() bool { return len(l.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (l *EventLog) CanRedo() bool { return len(l.redo) > 0 }

// Depths returns the undo and redo stack lengths.
func (l *EventLog) Depths() (int, int) { return len(l.undo), len(l.redo) }

// Snapshot copies both stacks for durable flush.
func (l *EventLog) Snapshot() (undo, redo model.EventStack) {
	return append(model.EventStack(nil), l.undo...), append(model.EventStack(nil), l.redo...)
}

// Restore replaces both stacks, used during crash recovery.
func (l *EventLog) Restore(undo, redo model.EventStack) {
	l.undo = append([]model.ChangeEvent(nil), undo...)
	l.redo = append([]model.ChangeEvent(nil), redo...)
}
