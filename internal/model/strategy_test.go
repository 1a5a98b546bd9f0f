package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormStateCloneIsDeep(t *testing.T) {
	pct := 2.5
	now := time.Now().UTC()
	original := &FormState{
		Name: "Foo",
		Indicators: []Indicator{
			{ID: "ind-1", Name: "rsi_14", Type: "rsi", Parameters: map[string]any{"period": 14.0}},
		},
		PositionSizing:     &PositionSizing{PercentageOfCapital: &pct},
		Comments:           []Comment{{Line: 1, Text: "note"}},
		LastSynchronizedAt: &now,
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.Indicators[0].Parameters["period"] = 21.0
	clone.PositionSizing.PercentageOfCapital = nil
	clone.Comments[0].Text = "edited"

	assert.Equal(t, 14.0, original.Indicators[0].Parameters["period"])
	assert.NotNil(t, original.PositionSizing.PercentageOfCapital)
	assert.Equal(t, "note", original.Comments[0].Text)
}

func TestFormStateValueScan(t *testing.T) {
	state := FormState{Name: "Foo", TradingPair: "BTC/USD", Timeframe: "1h", Version: 2}

	value, err := state.Value()
	require.NoError(t, err)

	var decoded FormState
	require.NoError(t, decoded.Scan(value.([]byte)))
	assert.Equal(t, state, decoded)

	assert.Error(t, decoded.Scan("not bytes"))
}

func TestEventStackValueScan(t *testing.T) {
	ev, err := NewChangeEvent("s", SourceBuilder, OpSetField, []string{"name"}, "A", "B")
	require.NoError(t, err)
	stack := EventStack{*ev}

	value, err := stack.Value()
	require.NoError(t, err)

	var decoded EventStack
	require.NoError(t, decoded.Scan(value.([]byte)))
	require.Len(t, decoded, 1)
	assert.Equal(t, ev.ID, decoded[0].ID)
	assert.Equal(t, OpSetField, decoded[0].OperationType)
}

func TestEventStackNilValueIsEmptyArray(t *testing.T) {
	var stack EventStack
	value, err := stack.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(value.([]byte)))
}

func TestNewChangeEventInverse(t *testing.T) {
	ev, err := NewChangeEvent("s", SourceDSL, OpSetCondition, []string{"entry_condition"}, "old", "new")
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, string(ev.Delta.Old), string(ev.Inverse.New))
	assert.Equal(t, string(ev.Delta.New), string(ev.Inverse.Old))
}

func TestTimeframeAndMarketFieldSets(t *testing.T) {
	assert.True(t, IsValidTimeframe("1h"))
	assert.True(t, IsValidTimeframe("1M"))
	assert.False(t, IsValidTimeframe("7h"))
	assert.False(t, IsValidTimeframe("1mo"))

	assert.True(t, IsMarketField("close"))
	assert.False(t, IsMarketField("rsi_14"))
}

func TestPositionSizingHasMode(t *testing.T) {
	pct := 1.0
	assert.False(t, (&PositionSizing{}).HasMode())
	assert.False(t, (*PositionSizing)(nil).HasMode())
	assert.True(t, (&PositionSizing{PercentageOfCapital: &pct}).HasMode())
	assert.True(t, (&PositionSizing{FixedAmount: &pct}).HasMode())
}
