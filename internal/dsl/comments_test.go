package dsl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/strategy-sync/internal/model"
)

func TestMergeInsertsBeforeTargetLine(t *testing.T) {
	rendered := "strategy Foo {\n  timeframe: 1h\n}\n"
	comments := []model.Comment{{Line: 2, Column: 3, Text: "hourly candles"}}

	merged := Merge(rendered, comments)

	assert.Equal(t, "strategy Foo {\n  # hourly candles\n  timeframe: 1h\n}\n", merged)
}

func TestMergeAppendsOverflowComments(t *testing.T) {
	rendered := "strategy Foo {\n}\n"
	comments := []model.Comment{
		{Line: 1, Column: 1, Text: "header"},
		{Line: 40, Column: 3, Text: "was attached to a removed line"},
	}

	merged := Merge(rendered, comments)

	lines := strings.Split(strings.TrimSuffix(merged, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "# header", lines[0])
	assert.Equal(t, "  # was attached to a removed line", lines[3])
}

func TestMergeWithoutCommentsIsIdentity(t *testing.T) {
	rendered := "strategy Foo {\n}\n"
	assert.Equal(t, rendered, Merge(rendered, nil))
}

func TestMergeOrdersCommentsOnSameLine(t *testing.T) {
	rendered := "timeframe: 1h\n"
	comments := []model.Comment{
		{Line: 1, Column: 5, Text: "second"},
		{Line: 1, Column: 1, Text: "first"},
	}

	merged := Merge(rendered, comments)

	assert.Equal(t, "# first\n    # second\ntimeframe: 1h\n", merged)
}

func TestValidatePreservation(t *testing.T) {
	before := "# keep me\ntimeframe: 1h # and me\n"

	ok := ValidatePreservation(before, "# and me\ntimeframe: 1h\n# keep me\n")
	assert.True(t, ok.Ok)

	lost := ValidatePreservation(before, "# keep me\ntimeframe: 1h\n")
	assert.False(t, lost.Ok)
	assert.Equal(t, []string{"and me"}, lost.Missing)

	gained := ValidatePreservation("timeframe: 1h\n", "# surprise\ntimeframe: 1h\n")
	assert.False(t, gained.Ok)
	assert.Equal(t, []string{"surprise"}, gained.Added)
}

// Ten full text -> state -> text cycles over a heavily commented document
// must not lose a single comment.
func TestCommentSurvivalAcrossRoundTrips(t *testing.T) {
	var b strings.Builder
	b.WriteString("# c01 header\n")
	b.WriteString("# c02 second header\n")
	b.WriteString("strategy MomentumBreakout { # c03 open\n")
	b.WriteString("  name: \"Momentum Breakout\" # c04 display name\n")
	b.WriteString("  pair: BTC/USD # c05 spot pair\n")
	b.WriteString("  timeframe: 1h # c06 hourly\n")
	b.WriteString("  # c07 indicators\n")
	b.WriteString("  indicator rsi_14 = rsi(period: 14) # c08 momentum\n")
	b.WriteString("  indicator ema_fast = ema(period: 12) # c09 fast trend\n")
	b.WriteString("  indicator ema_slow = ema(period: 26) # c10 slow trend\n")
	b.WriteString("  # c11 entry rules\n")
	b.WriteString("  entry {\n")
	b.WriteString("    rsi_14 < 30 # c12 oversold\n")
	b.WriteString("  }\n")
	b.WriteString("  # c13 exit rules\n")
	b.WriteString("  exit {\n")
	b.WriteString("    rsi_14 > 70 # c14 overbought\n")
	b.WriteString("  }\n")
	b.WriteString("  # c15 sizing\n")
	b.WriteString("  position_sizing {\n")
	b.WriteString("    percentage_of_capital: 2.5 # c16 conservative\n")
	b.WriteString("  }\n")
	b.WriteString("  # c17 risk\n")
	b.WriteString("  risk {\n")
	b.WriteString("    stop_loss_percent: 2 # c18 hard stop\n")
	b.WriteString("    max_open_positions: 3 # c19 cap exposure\n")
	b.WriteString("  }\n")
	b.WriteString("} # c20 close\n")
	original := b.String()

	require.Len(t, ExtractComments(original), 20)

	text := original
	for cycle := 0; cycle < 10; cycle++ {
		comments := ExtractComments(text)
		ast, _, err := Parse(text)
		require.NoError(t, err, "cycle %d", cycle)
		state, err := ToState(ast)
		require.NoError(t, err, "cycle %d", cycle)
		rendered, err := Render(state)
		require.NoError(t, err, "cycle %d", cycle)
		text = Merge(rendered, comments)
	}

	report := ValidatePreservation(original, text)
	assert.True(t, report.Ok, "missing %v, added %v", report.Missing, report.Added)
	assert.Len(t, ExtractComments(text), 20)
}
