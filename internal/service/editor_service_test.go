package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/strategy-sync/internal/history"
	"github.com/yourorg/strategy-sync/internal/model"
	strategysync "github.com/yourorg/strategy-sync/internal/sync"
	"github.com/yourorg/strategy-sync/internal/telemetry"
)

type capturingEmitter struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (e *capturingEmitter) Emit(_ context.Context, event telemetry.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *capturingEmitter) Close() error { return nil }

func (e *capturingEmitter) byName(name string) []telemetry.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []telemetry.Event
	for _, ev := range e.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func newTestService(emitter telemetry.Emitter) *EditorService {
	store := history.NewStore(history.DefaultStoreConfig(), nil, zap.NewNop())
	return NewEditorService(store, strategysync.New(), nil, emitter, zap.NewNop())
}

const validText = "strategy Foo {\n  name: \"Foo\"\n  pair: BTC/USD\n  timeframe: 1h\n}\n"

func TestServiceValidate(t *testing.T) {
	emitter := &capturingEmitter{}
	svc := newTestService(emitter)

	result := svc.Validate(context.Background(), validText)
	assert.True(t, result.Valid)
	assert.Empty(t, emitter.byName(telemetry.EventParseError))

	result = svc.Validate(context.Background(), "strategy Foo {\n  indicator r = rsi((period: 14)\n}\n")
	assert.False(t, result.Valid)

	parseErrors := emitter.byName(telemetry.EventParseError)
	require.Len(t, parseErrors, 1)
	assert.Equal(t, 2, parseErrors[0].Line)
	assert.False(t, parseErrors[0].Success)
}

func TestServiceValidateSemanticFailureNotEmitted(t *testing.T) {
	emitter := &capturingEmitter{}
	svc := newTestService(emitter)

	result := svc.Validate(context.Background(), "strategy Foo {\n  name: \"Foo\"\n  indicator r = rsi(period: 2000)\n}\n")

	assert.False(t, result.Valid)
	assert.Empty(t, emitter.byName(telemetry.EventParseError),
		"semantic findings are user input, not parse telemetry")
}

func TestServiceSynchronizeToState(t *testing.T) {
	emitter := &capturingEmitter{}
	svc := newTestService(emitter)

	state, result, err := svc.SynchronizeToState(context.Background(), validText, 0)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, state.Version)

	require.Len(t, emitter.byName(telemetry.EventSyncStart), 1)
	stops := emitter.byName(telemetry.EventSyncStop)
	require.Len(t, stops, 1)
	assert.Equal(t, "to_state", stops[0].Direction)
}

func TestServiceSynchronizeToStateInvalid(t *testing.T) {
	emitter := &capturingEmitter{}
	svc := newTestService(emitter)

	state, result, err := svc.SynchronizeToState(context.Background(), "strategy Foo {\n  timeframe: 7h\n}\n", 0)
	require.NoError(t, err)
	assert.Nil(t, state)
	require.NotNil(t, result)
	assert.False(t, result.Valid)

	require.Len(t, emitter.byName(telemetry.EventParseError), 1)
	assert.Empty(t, emitter.byName(telemetry.EventSyncStop))
}

func TestServiceSynchronizeToText(t *testing.T) {
	emitter := &capturingEmitter{}
	svc := newTestService(emitter)

	state := &model.FormState{Name: "Foo", TradingPair: "BTC/USD", Timeframe: "1h"}
	text, err := svc.SynchronizeToText(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Contains(t, text, "strategy Foo {")

	_, err = svc.SynchronizeToText(context.Background(), &model.FormState{Name: "Foo"}, nil)
	require.Error(t, err)

	exceptions := emitter.byName(telemetry.EventSyncException)
	require.Len(t, exceptions, 1)
	assert.Contains(t, exceptions[0].Error, "trading pair is required")
}

func TestServiceSessionFlow(t *testing.T) {
	emitter := &capturingEmitter{}
	svc := newTestService(emitter)

	id := svc.StartSession(42, 7)
	require.NotEmpty(t, id)

	event, err := model.NewChangeEvent(id, model.SourceBuilder, model.OpSetField, []string{"name"}, "A", "B")
	require.NoError(t, err)
	require.NoError(t, svc.PushChange(id, *event))

	undone, err := svc.Undo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, event.ID, undone.ID)

	redone, err := svc.Redo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, event.ID, redone.ID)

	_, err = svc.Redo(context.Background(), id)
	assert.ErrorIs(t, err, history.ErrNothingToRedo)

	summary, err := svc.SessionSummary(id)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UndoDepth)

	executions := emitter.byName(telemetry.EventUndoRedoExecute)
	require.Len(t, executions, 3)
	assert.True(t, executions[0].Success)
	assert.False(t, executions[2].Success)

	require.NoError(t, svc.EndSession(context.Background(), id))
	_, err = svc.SessionSummary(id)
	assert.ErrorIs(t, err, history.ErrSessionNotFound)
}
