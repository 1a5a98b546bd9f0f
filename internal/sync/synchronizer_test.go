package sync

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/strategy-sync/internal/model"
)

func fptr(v float64) *float64 { return &v }

func validState() *model.FormState {
	return &model.FormState{
		Name:        "Momentum Breakout",
		TradingPair: "BTC/USD",
		Timeframe:   "1h",
		Indicators: []model.Indicator{
			{ID: "ind-1", Name: "rsi_14", Type: "rsi", Parameters: map[string]any{"period": 14.0}},
		},
		EntryCondition: "rsi_14 < 30",
		RiskParameters: &model.RiskParameters{StopLossPercent: fptr(2)},
	}
}

func TestToTextRendersCanonicalDocument(t *testing.T) {
	s := New()

	text, err := s.ToText(validState(), nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "strategy MomentumBreakout {\n"))
	assert.Contains(t, text, "indicator rsi_14 = rsi(period: 14)")
	assert.Contains(t, text, "entry {\n    rsi_14 < 30\n  }")
}

func TestToTextSplicesComments(t *testing.T) {
	s := New()
	comments := []model.Comment{{Line: 1, Column: 1, Text: "reviewed 2024-03"}}

	text, err := s.ToText(validState(), comments)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "# reviewed 2024-03\nstrategy MomentumBreakout {"))
}

func TestToTextRequiredFields(t *testing.T) {
	s := New()

	for _, tc := range []struct {
		name   string
		mutate func(*model.FormState)
		want   string
	}{
		{"missing name", func(st *model.FormState) { st.Name = "" }, "name is required"},
		{"missing pair", func(st *model.FormState) { st.TradingPair = " " }, "trading pair is required"},
		{"missing timeframe", func(st *model.FormState) { st.Timeframe = "" }, "timeframe is required"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			state := validState()
			tc.mutate(state)
			_, err := s.ToText(state, nil)
			assert.ErrorContains(t, err, tc.want)
		})
	}

	_, err := s.ToText(nil, nil)
	assert.ErrorContains(t, err, "state is required")
}

func TestToStateStampsVersionAndTime(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return fixed }))

	text := "strategy Foo {\n  name: \"Foo\"\n  pair: BTC/USD\n  timeframe: 1h\n}\n"
	state, result, err := s.ToState(text, 4)
	require.NoError(t, err)
	require.NotNil(t, state)

	assert.True(t, result.Valid)
	assert.Equal(t, 5, state.Version)
	require.NotNil(t, state.LastSynchronizedAt)
	assert.Equal(t, fixed, *state.LastSynchronizedAt)
}

func TestToStateInvalidTextReturnsFindings(t *testing.T) {
	s := New()

	state, result, err := s.ToState("strategy Foo {\n  indicator r = rsi(period: 2000)\n}\n", 0)

	require.NoError(t, err)
	assert.Nil(t, state)
	require.NotNil(t, result)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, model.KindSemantic, result.Errors[0].Kind)
}

func TestToStateCarriesComments(t *testing.T) {
	s := New()

	text := "# header\nstrategy Foo {\n  name: \"Foo\"\n  pair: BTC/USD\n  timeframe: 1h # hourly\n}\n"
	state, _, err := s.ToState(text, 0)
	require.NoError(t, err)
	require.NotNil(t, state)

	require.Len(t, state.Comments, 2)
	assert.Equal(t, "header", state.Comments[0].Text)
	assert.Equal(t, "hourly", state.Comments[1].Text)
	assert.True(t, state.Comments[0].PreservedFromSource)
}

func TestSynchronizerRoundTrip(t *testing.T) {
	s := New()
	original := validState()

	text, err := s.ToText(original, nil)
	require.NoError(t, err)

	state, result, err := s.ToState(text, original.Version)
	require.NoError(t, err)
	require.NotNil(t, state, "errors: %+v", result.Errors)

	again, err := s.ToText(state, state.Comments)
	require.NoError(t, err)
	assert.Equal(t, text, again)
}
