// Package sync implements the bidirectional transform between the
// structured form state and DSL text. Both directions are pure functions
// of their inputs; callers layer logging, caching and telemetry on top.
package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourorg/strategy-sync/internal/dsl"
	"github.com/yourorg/strategy-sync/internal/model"
	"github.com/yourorg/strategy-sync/internal/validator"
)

// Synchronizer orchestrates validation, structural mapping and comment
// preservation. The zero value is not usable; call New.
type Synchronizer struct {
	now func() time.Time
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithClock overrides the timestamp source; tests use it for determinism.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// New creates a Synchronizer.
func New(opts ...Option) *Synchronizer {
	s := &Synchronizer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ToText renders state into canonical DSL text and splices comments back
// in. Required fields are checked up front so the renderer never produces
// a partial document.
func (s *Synchronizer) ToText(state *model.FormState, comments []model.Comment) (string, error) {
	if state == nil {
		return "", fmt.Errorf("state is required")
	}
	if strings.TrimSpace(state.Name) == "" {
		return "", fmt.Errorf("strategy name is required")
	}
	if strings.TrimSpace(state.TradingPair) == "" {
		return "", fmt.Errorf("trading pair is required")
	}
	if strings.TrimSpace(state.Timeframe) == "" {
		return "", fmt.Errorf("timeframe is required")
	}

	rendered, err := dsl.Render(state)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return dsl.Merge(rendered, comments), nil
}

// ToState validates text and maps it into a FormState stamped with
// priorVersion+1 and the synchronization time. When the text is invalid
// the ValidationResult carries the line-addressed findings and the state
// is nil.
func (s *Synchronizer) ToState(text string, priorVersion int) (*model.FormState, *model.ValidationResult, error) {
	result := validator.Validate(text)
	if !result.Valid {
		return nil, &result, nil
	}

	ast, comments, err := dsl.Parse(text)
	if err != nil {
		// Validate already parsed this text; a failure here is an
		// internal inconsistency, not a user error.
		return nil, nil, fmt.Errorf("parse after successful validation: %w", err)
	}
	state, err := dsl.ToState(ast)
	if err != nil {
		return nil, nil, fmt.Errorf("map after successful validation: %w", err)
	}

	state.Comments = comments
	state.Version = priorVersion + 1
	now := s.now().UTC()
	state.LastSynchronizedAt = &now
	return state, &result, nil
}
