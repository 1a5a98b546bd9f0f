package dsl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yourorg/strategy-sync/internal/model"
	"github.com/yourorg/strategy-sync/internal/registry"
)

// Render turns a FormState into canonical DSL text without comments; the
// comment preserver splices those in afterwards. Rendering the same state
// twice produces byte-for-byte identical output.
func Render(state *model.FormState) (string, error) {
	if state == nil {
		return "", fmt.Errorf("nil state")
	}
	if strings.TrimSpace(state.Name) == "" {
		return "", fmt.Errorf("strategy name is required")
	}
	if state.PositionSizing != nil && !state.PositionSizing.HasMode() {
		return "", fmt.Errorf("position sizing needs percentage_of_capital or fixed_amount")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "strategy %s {\n", ModuleName(state.Name))
	fmt.Fprintf(&b, "  name: %q\n", state.Name)
	if state.TradingPair != "" {
		fmt.Fprintf(&b, "  pair: %s\n", state.TradingPair)
	}
	if state.Timeframe != "" {
		fmt.Fprintf(&b, "  timeframe: %s\n", state.Timeframe)
	}
	if state.Description != "" {
		fmt.Fprintf(&b, "  description: %q\n", state.Description)
	}

	if len(state.Indicators) > 0 {
		b.WriteString("\n")
		for _, ind := range state.Indicators {
			if !isIdentifier(ind.Name) {
				return "", fmt.Errorf("indicator name %q is not a renderable identifier", ind.Name)
			}
			if !isIdentifier(ind.Type) {
				return "", fmt.Errorf("indicator type %q is not a renderable identifier", ind.Type)
			}
			fmt.Fprintf(&b, "  indicator %s = %s(%s)\n", ind.Name, ind.Type, renderParams(&ind))
		}
	}

	renderCondition(&b, "entry", state.EntryCondition)
	renderCondition(&b, "exit", state.ExitCondition)
	renderCondition(&b, "stop", state.StopCondition)

	if state.PositionSizing != nil {
		b.WriteString("\n  position_sizing {\n")
		writeOptFloat(&b, "percentage_of_capital", state.PositionSizing.PercentageOfCapital)
		writeOptFloat(&b, "fixed_amount", state.PositionSizing.FixedAmount)
		writeOptFloat(&b, "max_position_size", state.PositionSizing.MaxPositionSize)
		b.WriteString("  }\n")
	}
	if state.RiskParameters != nil {
		b.WriteString("\n  risk {\n")
		writeOptFloat(&b, "stop_loss_percent", state.RiskParameters.StopLossPercent)
		writeOptFloat(&b, "take_profit_percent", state.RiskParameters.TakeProfitPercent)
		writeOptFloat(&b, "max_drawdown_percent", state.RiskParameters.MaxDrawdownPercent)
		if state.RiskParameters.MaxOpenPositions != nil {
			fmt.Fprintf(&b, "    max_open_positions: %d\n", *state.RiskParameters.MaxOpenPositions)
		}
		if state.RiskParameters.TrailingStop != nil {
			fmt.Fprintf(&b, "    trailing_stop: %t\n", *state.RiskParameters.TrailingStop)
		}
		b.WriteString("  }\n")
	}

	b.WriteString("}\n")
	return b.String(), nil
}

func renderCondition(b *strings.Builder, kind, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	b.WriteString("\n  " + kind + " {\n")
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintf(b, "    %s\n", strings.TrimSpace(line))
	}
	b.WriteString("  }\n")
}

// renderParams orders parameters by the registry schema first, then any
// extras lexicographically, so output is stable. Unknown indicator types
// degrade to plain lexicographic order rather than failing the render.
func renderParams(ind *model.Indicator) string {
	var ordered []string
	seen := map[string]bool{}
	if def, err := registry.Get(ind.Type); err == nil {
		for _, spec := range def.Parameters {
			if _, ok := ind.Parameters[spec.Name]; ok {
				ordered = append(ordered, spec.Name)
				seen[spec.Name] = true
			}
		}
	}
	var extras []string
	for k := range ind.Parameters {
		if !seen[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	ordered = append(ordered, extras...)

	parts := make([]string, 0, len(ordered))
	for _, k := range ordered {
		parts = append(parts, fmt.Sprintf("%s: %s", k, FormatScalar(ind.Parameters[k])))
	}
	return strings.Join(parts, ", ")
}

func writeOptFloat(b *strings.Builder, key string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "    %s: %s\n", key, formatFloat(*v))
}

// FormatScalar renders a parsed scalar back to source form. Bare
// identifiers stay unquoted so round trips are stable.
func FormatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatFloat(val)
	case int:
		return strconv.Itoa(val)
	case string:
		if isIdentifier(val) {
			return val
		}
		return strconv.Quote(val)
	default:
		return fmt.Sprint(val)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
