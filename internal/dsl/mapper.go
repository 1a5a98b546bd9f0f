package dsl

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yourorg/strategy-sync/internal/model"
)

// ToState projects a parsed AST into the structured form state. Condition
// bodies are carried verbatim; only identifier scanning ever inspects them.
func ToState(ast *AST) (*model.FormState, error) {
	if ast == nil || ast.Strategy == nil {
		return nil, fmt.Errorf("nil ast")
	}
	node := ast.Strategy
	state := &model.FormState{}

	if v, ok := node.Attribute("name"); ok {
		state.Name = scalarString(v)
	} else if node.ModuleName != "" {
		state.Name = TitleizeModule(node.ModuleName)
	}
	// "trading_pair" is accepted as an alias; "pair" is the canonical form.
	if v, ok := node.Attribute("pair"); ok {
		state.TradingPair = scalarString(v)
	} else if v, ok := node.Attribute("trading_pair"); ok {
		state.TradingPair = scalarString(v)
	}
	if v, ok := node.Attribute("timeframe"); ok {
		state.Timeframe = scalarString(v)
	}
	if v, ok := node.Attribute("description"); ok {
		state.Description = scalarString(v)
	}

	seen := map[string]int{}
	for _, ind := range node.Indicators {
		if prev, dup := seen[ind.Name]; dup {
			return nil, &SyntaxError{
				Line:    ind.Line,
				Column:  1,
				Message: fmt.Sprintf("indicator %q already declared on line %d", ind.Name, prev),
			}
		}
		seen[ind.Name] = ind.Line
		params := make(map[string]any, len(ind.Params))
		for _, p := range ind.Params {
			params[p.Key] = p.Value
		}
		state.Indicators = append(state.Indicators, model.Indicator{
			ID:         uuid.NewString(),
			Name:       ind.Name,
			Type:       ind.Type,
			Parameters: params,
		})
	}

	state.EntryCondition, _ = node.Condition("entry")
	state.ExitCondition, _ = node.Condition("exit")
	state.StopCondition, _ = node.Condition("stop")

	if node.Sizing != nil {
		state.PositionSizing = mapSizing(node.Sizing)
	}
	if node.Risk != nil {
		state.RiskParameters = mapRisk(node.Risk)
	}
	return state, nil
}

func mapSizing(block *KVBlockNode) *model.PositionSizing {
	out := &model.PositionSizing{}
	for _, e := range block.Entries {
		switch e.Key {
		// "percentage" is the shorthand hand-written documents use.
		case "percentage_of_capital", "percentage":
			out.PercentageOfCapital = scalarFloat(e.Value)
		case "fixed_amount":
			out.FixedAmount = scalarFloat(e.Value)
		case "max_position_size":
			out.MaxPositionSize = scalarFloat(e.Value)
		}
	}
	return out
}

func mapRisk(block *KVBlockNode) *model.RiskParameters {
	out := &model.RiskParameters{}
	for _, e := range block.Entries {
		switch e.Key {
		case "stop_loss_percent":
			out.StopLossPercent = scalarFloat(e.Value)
		case "take_profit_percent":
			out.TakeProfitPercent = scalarFloat(e.Value)
		case "max_drawdown_percent":
			out.MaxDrawdownPercent = scalarFloat(e.Value)
		case "max_open_positions":
			if f := scalarFloat(e.Value); f != nil {
				n := int(*f)
				out.MaxOpenPositions = &n
			}
		case "trailing_stop":
			if b, ok := e.Value.(bool); ok {
				out.TrailingStop = &b
			}
		}
	}
	return out
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func scalarFloat(v any) *float64 {
	switch val := v.(type) {
	case float64:
		return &val
	case int:
		f := float64(val)
		return &f
	}
	return nil
}
