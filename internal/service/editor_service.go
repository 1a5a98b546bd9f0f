package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/strategy-sync/internal/cache"
	"github.com/yourorg/strategy-sync/internal/history"
	"github.com/yourorg/strategy-sync/internal/model"
	strategysync "github.com/yourorg/strategy-sync/internal/sync"
	"github.com/yourorg/strategy-sync/internal/telemetry"
	"github.com/yourorg/strategy-sync/internal/validator"
)

// Latency budgets. Exceeding one logs a warning; it never fails the call.
const (
	ValidateBudget = 500 * time.Millisecond
	MutationBudget = 50 * time.Millisecond
)

// EditorService orchestrates synchronization, validation and session
// history for the editor API.
type EditorService struct {
	store        *history.Store
	synchronizer *strategysync.Synchronizer
	cache        *cache.ValidationCache
	emitter      telemetry.Emitter
	logger       *zap.Logger
}

// NewEditorService creates a new editor service
func NewEditorService(
	store *history.Store,
	synchronizer *strategysync.Synchronizer,
	validationCache *cache.ValidationCache,
	emitter telemetry.Emitter,
	logger *zap.Logger,
) *EditorService {
	return &EditorService{
		store:        store,
		synchronizer: synchronizer,
		cache:        validationCache,
		emitter:      emitter,
		logger:       logger,
	}
}

// Validate runs the three-pass validation pipeline, consulting the cache
// first.
func (s *EditorService) Validate(ctx context.Context, text string) model.ValidationResult {
	if cached := s.cache.Get(ctx, text); cached != nil {
		return *cached
	}

	start := time.Now()
	result := validator.Validate(text)
	elapsed := time.Since(start)
	if elapsed > ValidateBudget {
		s.logger.Warn("validation exceeded latency budget",
			zap.Duration("elapsed", elapsed),
			zap.Duration("budget", ValidateBudget))
	}

	s.cache.Set(ctx, text, &result)
	if !result.Valid && result.Errors[0].Kind != model.KindSemantic {
		first := result.Errors[0]
		s.emitter.Emit(ctx, telemetry.Event{
			Name:       telemetry.EventParseError,
			DurationMS: elapsed.Milliseconds(),
			Success:    false,
			Error:      first.Message,
			Line:       first.Line,
		})
	}
	return result
}

// SynchronizeToText refreshes the text view from the structured state.
func (s *EditorService) SynchronizeToText(ctx context.Context, state *model.FormState, comments []model.Comment) (string, error) {
	start := time.Now()
	indicatorCount := 0
	if state != nil {
		indicatorCount = len(state.Indicators)
	}
	s.emitter.Emit(ctx, telemetry.Event{
		Name:           telemetry.EventSyncStart,
		Direction:      "to_text",
		IndicatorCount: indicatorCount,
		Success:        true,
	})

	text, err := s.synchronizer.ToText(state, comments)
	elapsed := time.Since(start)
	if err != nil {
		s.emitter.Emit(ctx, telemetry.Event{
			Name:           telemetry.EventSyncException,
			Direction:      "to_text",
			DurationMS:     elapsed.Milliseconds(),
			IndicatorCount: indicatorCount,
			Success:        false,
			Error:          err.Error(),
		})
		return "", err
	}
	s.emitter.Emit(ctx, telemetry.Event{
		Name:           telemetry.EventSyncStop,
		Direction:      "to_text",
		DurationMS:     elapsed.Milliseconds(),
		IndicatorCount: indicatorCount,
		Success:        true,
	})
	return text, nil
}

// SynchronizeToState refreshes the structured state from the text view.
// An invalid document returns a ValidationResult, not an error; internal
// faults return an error.
func (s *EditorService) SynchronizeToState(ctx context.Context, text string, priorVersion int) (*model.FormState, *model.ValidationResult, error) {
	start := time.Now()
	s.emitter.Emit(ctx, telemetry.Event{
		Name:      telemetry.EventSyncStart,
		Direction: "to_state",
		Success:   true,
	})

	state, result, err := s.synchronizer.ToState(text, priorVersion)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		s.emitter.Emit(ctx, telemetry.Event{
			Name:       telemetry.EventSyncException,
			Direction:  "to_state",
			DurationMS: elapsed.Milliseconds(),
			Success:    false,
			Error:      err.Error(),
		})
		return nil, nil, err
	case state == nil:
		first := result.Errors[0]
		s.emitter.Emit(ctx, telemetry.Event{
			Name:       telemetry.EventParseError,
			Direction:  "to_state",
			DurationMS: elapsed.Milliseconds(),
			Success:    false,
			Error:      first.Message,
			Line:       first.Line,
		})
		return nil, result, nil
	}

	s.emitter.Emit(ctx, telemetry.Event{
		Name:           telemetry.EventSyncStop,
		Direction:      "to_state",
		DurationMS:     elapsed.Milliseconds(),
		IndicatorCount: len(state.Indicators),
		Success:        true,
	})
	return state, result, nil
}

// StartSession opens an editing session for a strategy.
func (s *EditorService) StartSession(strategyID, userID int) string {
	return s.store.StartSession(strategyID, userID)
}

// ResumeSession restores a session from its durable snapshot, typically
// after a service restart.
func (s *EditorService) ResumeSession(ctx context.Context, sessionID string) error {
	return s.store.ResumeSession(ctx, sessionID)
}

// EndSession closes a session, flushing its final snapshot.
func (s *EditorService) EndSession(ctx context.Context, sessionID string) error {
	return s.store.EndSession(ctx, sessionID)
}

// PushChange records a change event on the session's history.
func (s *EditorService) PushChange(sessionID string, event model.ChangeEvent) error {
	start := time.Now()
	err := s.store.Push(sessionID, event)
	s.warnOverBudget("push", time.Since(start))
	return err
}

// Undo pops the latest event and returns it; callers apply its inverse to
// their in-memory state.
func (s *EditorService) Undo(ctx context.Context, sessionID string) (*model.ChangeEvent, error) {
	return s.executeUndoRedo(ctx, sessionID, "undo", s.store.Undo)
}

// Redo re-applies the most recently undone event.
func (s *EditorService) Redo(ctx context.Context, sessionID string) (*model.ChangeEvent, error) {
	return s.executeUndoRedo(ctx, sessionID, "redo", s.store.Redo)
}

func (s *EditorService) executeUndoRedo(ctx context.Context, sessionID, op string, fn func(string) (*model.ChangeEvent, error)) (*model.ChangeEvent, error) {
	start := time.Now()
	event, err := fn(sessionID)
	elapsed := time.Since(start)
	s.warnOverBudget(op, elapsed)
	s.emitter.Emit(ctx, telemetry.Event{
		Name:       telemetry.EventUndoRedoExecute,
		SessionID:  sessionID,
		Operation:  op,
		DurationMS: elapsed.Milliseconds(),
		Success:    err == nil,
		Error:      errString(err),
	})
	return event, err
}

// SessionSummary returns the session read model.
func (s *EditorService) SessionSummary(sessionID string) (*model.SessionSummary, error) {
	return s.store.Summary(sessionID)
}

func (s *EditorService) warnOverBudget(op string, elapsed time.Duration) {
	if elapsed > MutationBudget {
		s.logger.Warn("history operation exceeded latency budget",
			zap.String("operation", op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("budget", MutationBudget))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
