package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/strategy-sync/internal/model"
)

func baseState() *model.FormState {
	return &model.FormState{
		Name:        "Momentum Breakout",
		TradingPair: "BTC/USD",
		Timeframe:   "1h",
		Indicators: []model.Indicator{
			{ID: "ind-1", Name: "rsi_14", Type: "rsi", Parameters: map[string]any{"period": 14.0}},
			{ID: "ind-2", Name: "ema_fast", Type: "ema", Parameters: map[string]any{"period": 12.0}},
		},
		EntryCondition: "rsi_14 < 30",
	}
}

// applying an event then its inverse must restore the original state
// exactly, for every operation type.
func assertInvertible(t *testing.T, state *model.FormState, event *model.ChangeEvent) {
	t.Helper()
	after, err := ApplyEvent(state, event)
	require.NoError(t, err)
	restored, err := ApplyInverse(after, event)
	require.NoError(t, err)
	assert.Equal(t, state, restored)
}

func TestApplySetField(t *testing.T) {
	state := baseState()
	event, err := model.NewChangeEvent("s", model.SourceBuilder, model.OpSetField,
		[]string{"timeframe"}, "1h", "4h")
	require.NoError(t, err)

	after, err := ApplyEvent(state, event)
	require.NoError(t, err)
	assert.Equal(t, "4h", after.Timeframe)
	assert.Equal(t, "1h", state.Timeframe, "input state must not be mutated")

	assertInvertible(t, state, event)
}

func TestApplySetFieldUnknownPath(t *testing.T) {
	event, err := model.NewChangeEvent("s", model.SourceBuilder, model.OpSetField,
		[]string{"made_up"}, "a", "b")
	require.NoError(t, err)

	_, err = ApplyEvent(baseState(), event)
	assert.ErrorContains(t, err, "unknown field")
}

func TestApplySetCondition(t *testing.T) {
	state := baseState()
	event, err := model.NewChangeEvent("s", model.SourceDSL, model.OpSetCondition,
		[]string{"exit_condition"}, "", "rsi_14 > 70")
	require.NoError(t, err)

	after, err := ApplyEvent(state, event)
	require.NoError(t, err)
	assert.Equal(t, "rsi_14 > 70", after.ExitCondition)

	assertInvertible(t, state, event)
}

func TestApplyAddIndicator(t *testing.T) {
	state := baseState()
	added := IndicatorChange{
		Indicator: model.Indicator{ID: "ind-3", Name: "sma_20", Type: "sma", Parameters: map[string]any{"period": 20.0}},
		Index:     1,
	}
	event, err := model.NewChangeEvent("s", model.SourceBuilder, model.OpAddIndicator,
		[]string{"indicators", "ind-3"}, nil, added)
	require.NoError(t, err)

	after, err := ApplyEvent(state, event)
	require.NoError(t, err)
	require.Len(t, after.Indicators, 3)
	assert.Equal(t, "sma_20", after.Indicators[1].Name)
	assert.Equal(t, "ema_fast", after.Indicators[2].Name)

	assertInvertible(t, state, event)
}

func TestApplyAddIndicatorRejectsDuplicateName(t *testing.T) {
	added := IndicatorChange{
		Indicator: model.Indicator{ID: "ind-9", Name: "rsi_14", Type: "rsi"},
		Index:     0,
	}
	event, err := model.NewChangeEvent("s", model.SourceBuilder, model.OpAddIndicator,
		[]string{"indicators", "ind-9"}, nil, added)
	require.NoError(t, err)

	_, err = ApplyEvent(baseState(), event)
	assert.ErrorContains(t, err, "already declared")
}

func TestApplyRemoveIndicator(t *testing.T) {
	state := baseState()
	removed := IndicatorChange{Indicator: state.Indicators[0], Index: 0}
	event, err := model.NewChangeEvent("s", model.SourceBuilder, model.OpRemoveIndicator,
		[]string{"indicators", "ind-1"}, removed, nil)
	require.NoError(t, err)

	after, err := ApplyEvent(state, event)
	require.NoError(t, err)
	require.Len(t, after.Indicators, 1)
	assert.Equal(t, "ema_fast", after.Indicators[0].Name)

	// Inverse re-inserts at the original position.
	restored, err := ApplyInverse(after, event)
	require.NoError(t, err)
	assert.Equal(t, state, restored)
}

func TestApplyUpdateIndicator(t *testing.T) {
	state := baseState()
	before := state.Indicators[0]
	updated := before
	updated.Parameters = map[string]any{"period": 21.0}

	event, err := model.NewChangeEvent("s", model.SourceBuilder, model.OpUpdateIndicator,
		[]string{"indicators", "ind-1"}, before, updated)
	require.NoError(t, err)

	after, err := ApplyEvent(state, event)
	require.NoError(t, err)
	assert.Equal(t, 21.0, after.Indicators[0].Parameters["period"])

	assertInvertible(t, state, event)
}

func TestApplyMoveIndicator(t *testing.T) {
	state := baseState()
	event, err := model.NewChangeEvent("s", model.SourceBuilder, model.OpMoveIndicator,
		[]string{"indicators", "ind-1"}, IndicatorMove{Index: 0}, IndicatorMove{Index: 1})
	require.NoError(t, err)

	after, err := ApplyEvent(state, event)
	require.NoError(t, err)
	assert.Equal(t, "ema_fast", after.Indicators[0].Name)
	assert.Equal(t, "rsi_14", after.Indicators[1].Name)

	assertInvertible(t, state, event)
}

func TestApplySetPositionSizing(t *testing.T) {
	pct := 2.5
	state := baseState()
	event, err := model.NewChangeEvent("s", model.SourceBuilder, model.OpSetPositionSizing,
		[]string{"position_sizing"}, nil, model.PositionSizing{PercentageOfCapital: &pct})
	require.NoError(t, err)

	after, err := ApplyEvent(state, event)
	require.NoError(t, err)
	require.NotNil(t, after.PositionSizing)
	assert.Equal(t, 2.5, *after.PositionSizing.PercentageOfCapital)

	restored, err := ApplyInverse(after, event)
	require.NoError(t, err)
	assert.Nil(t, restored.PositionSizing)
}

func TestApplySetRiskParameters(t *testing.T) {
	stop := 2.0
	state := baseState()
	event, err := model.NewChangeEvent("s", model.SourceBuilder, model.OpSetRiskParameters,
		[]string{"risk"}, nil, model.RiskParameters{StopLossPercent: &stop})
	require.NoError(t, err)

	after, err := ApplyEvent(state, event)
	require.NoError(t, err)
	require.NotNil(t, after.RiskParameters)

	restored, err := ApplyInverse(after, event)
	require.NoError(t, err)
	assert.Nil(t, restored.RiskParameters)
}

func TestApplyUnknownOperation(t *testing.T) {
	event := &model.ChangeEvent{OperationType: "explode"}
	_, err := ApplyEvent(baseState(), event)
	assert.ErrorContains(t, err, "unknown operation type")
}
