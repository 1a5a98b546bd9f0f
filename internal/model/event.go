package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventSource identifies which view produced an edit.
type EventSource string

const (
	SourceBuilder EventSource = "builder"
	SourceDSL     EventSource = "dsl"
)

// OperationType is the closed set of edit operations. The change applier
// switches exhaustively over these.
type OperationType string

const (
	OpSetField          OperationType = "set_field"
	OpSetCondition      OperationType = "set_condition"
	OpAddIndicator      OperationType = "add_indicator"
	OpRemoveIndicator   OperationType = "remove_indicator"
	OpUpdateIndicator   OperationType = "update_indicator"
	OpMoveIndicator     OperationType = "move_indicator"
	OpSetPositionSizing OperationType = "set_position_sizing"
	OpSetRiskParameters OperationType = "set_risk_parameters"
)

// Delta carries the old and new value of one edit as raw JSON so events
// stay immutable and comparable regardless of the field type.
type Delta struct {
	Old json.RawMessage `json:"old"`
	New json.RawMessage `json:"new"`
}

// ChangeEvent is one atomic, invertible edit to a FormState. Applying
// Inverse always restores the prior state exactly; that property backs
// undo.
type ChangeEvent struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"session_id"`
	Timestamp     time.Time     `json:"timestamp"`
	Source        EventSource   `json:"source"`
	OperationType OperationType `json:"operation_type"`
	Path          []string      `json:"path"`
	Delta         Delta         `json:"delta"`
	Inverse       Delta         `json:"inverse"`
	UserID        int           `json:"user_id,omitempty"`
	Version       int           `json:"version"`
}

// NewChangeEvent builds an event with a fresh ID and the inverse derived
// by swapping the delta.
func NewChangeEvent(sessionID string, source EventSource, op OperationType, path []string, oldVal, newVal any) (*ChangeEvent, error) {
	oldRaw, err := json.Marshal(oldVal)
	if err != nil {
		return nil, err
	}
	newRaw, err := json.Marshal(newVal)
	if err != nil {
		return nil, err
	}
	return &ChangeEvent{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		OperationType: op,
		Path:          path,
		Delta:         Delta{Old: oldRaw, New: newRaw},
		Inverse:       Delta{Old: newRaw, New: oldRaw},
	}, nil
}

// EventStack is an ordered list of change events, newest first. Stored as
// JSONB in the durable session snapshot.
type EventStack []ChangeEvent

// Value implements the driver.Valuer interface for EventStack
func (st EventStack) Value() (driver.Value, error) {
	if st == nil {
		return json.Marshal([]ChangeEvent{})
	}
	return json.Marshal(st)
}

// Scan implements the sql.Scanner interface for EventStack
func (st *EventStack) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, st)
}

// SessionSnapshot is the durable form of one editing session, written by
// the flush worker and read only for crash recovery.
type SessionSnapshot struct {
	SessionID      string     `json:"session_id" db:"session_id"`
	StrategyID     int        `json:"strategy_id" db:"strategy_id"`
	UserID         int        `json:"user_id" db:"user_id"`
	UndoStack      EventStack `json:"undo_stack" db:"undo_stack"`
	RedoStack      EventStack `json:"redo_stack" db:"redo_stack"`
	LastModifiedAt time.Time  `json:"last_modified_at" db:"last_modified_at"`
}

// SessionSummary is the read model returned to editor clients.
type SessionSummary struct {
	SessionID      string    `json:"session_id"`
	StrategyID     int       `json:"strategy_id"`
	UndoDepth      int       `json:"undo_depth"`
	RedoDepth      int       `json:"redo_depth"`
	CanUndo        bool      `json:"can_undo"`
	CanRedo        bool      `json:"can_redo"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}
