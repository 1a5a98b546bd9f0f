package history

import (
	"encoding/json"
	"fmt"

	"github.com/yourorg/strategy-sync/internal/model"
)

// IndicatorChange carries an indicator together with its list position so
// add/remove events invert exactly.
type IndicatorChange struct {
	Indicator model.Indicator `json:"indicator"`
	Index     int             `json:"index"`
}

// IndicatorMove carries a position change for a move event.
type IndicatorMove struct {
	Index int `json:"index"`
}

// ApplyEvent applies an event's delta to state and returns the resulting
// state. The input is never mutated.
func ApplyEvent(state *model.FormState, event *model.ChangeEvent) (*model.FormState, error) {
	return applyDelta(state, event, event.Delta)
}

// ApplyInverse applies an event's inverse, restoring the state that
// preceded the event exactly.
func ApplyInverse(state *model.FormState, event *model.ChangeEvent) (*model.FormState, error) {
	return applyDelta(state, event, event.Inverse)
}

// applyDelta switches exhaustively over the operation type; adding a new
// operation without a case here is a compile-visible omission, not a
// runtime lookup miss.
func applyDelta(state *model.FormState, event *model.ChangeEvent, delta model.Delta) (*model.FormState, error) {
	if state == nil {
		return nil, fmt.Errorf("nil state")
	}
	out := state.Clone()

	switch event.OperationType {
	case model.OpSetField:
		return out, applySetField(out, event.Path, delta.New)

	case model.OpSetCondition:
		return out, applySetCondition(out, event.Path, delta.New)

	case model.OpAddIndicator:
		var change IndicatorChange
		if isNull(delta.New) {
			// Inverse direction: take the added indicator back out.
			if err := json.Unmarshal(delta.Old, &change); err != nil {
				return nil, fmt.Errorf("decode add_indicator inverse: %w", err)
			}
			return out, deleteIndicator(out, change.Indicator.ID)
		}
		if err := json.Unmarshal(delta.New, &change); err != nil {
			return nil, fmt.Errorf("decode add_indicator delta: %w", err)
		}
		return out, insertIndicator(out, change)

	case model.OpRemoveIndicator:
		var change IndicatorChange
		if isNull(delta.New) {
			if err := json.Unmarshal(delta.Old, &change); err != nil {
				return nil, fmt.Errorf("decode remove_indicator delta: %w", err)
			}
			return out, deleteIndicator(out, change.Indicator.ID)
		}
		// Inverse direction: re-insert the removed indicator.
		if err := json.Unmarshal(delta.New, &change); err != nil {
			return nil, fmt.Errorf("decode remove_indicator inverse: %w", err)
		}
		return out, insertIndicator(out, change)

	case model.OpUpdateIndicator:
		var updated model.Indicator
		if err := json.Unmarshal(delta.New, &updated); err != nil {
			return nil, fmt.Errorf("decode update_indicator delta: %w", err)
		}
		ind, _, ok := out.IndicatorByID(updated.ID)
		if !ok {
			return nil, fmt.Errorf("update_indicator: no indicator with id %q", updated.ID)
		}
		*ind = updated
		return out, nil

	case model.OpMoveIndicator:
		if len(event.Path) < 2 {
			return nil, fmt.Errorf("move_indicator: path must be [indicators, <id>]")
		}
		var move IndicatorMove
		if err := json.Unmarshal(delta.New, &move); err != nil {
			return nil, fmt.Errorf("decode move_indicator delta: %w", err)
		}
		return out, moveIndicator(out, event.Path[1], move.Index)

	case model.OpSetPositionSizing:
		if isNull(delta.New) {
			out.PositionSizing = nil
			return out, nil
		}
		var ps model.PositionSizing
		if err := json.Unmarshal(delta.New, &ps); err != nil {
			return nil, fmt.Errorf("decode position sizing delta: %w", err)
		}
		out.PositionSizing = &ps
		return out, nil

	case model.OpSetRiskParameters:
		if isNull(delta.New) {
			out.RiskParameters = nil
			return out, nil
		}
		var rp model.RiskParameters
		if err := json.Unmarshal(delta.New, &rp); err != nil {
			return nil, fmt.Errorf("decode risk parameters delta: %w", err)
		}
		out.RiskParameters = &rp
		return out, nil

	default:
		return nil, fmt.Errorf("unknown operation type %q", event.OperationType)
	}
}

func applySetField(state *model.FormState, path []string, raw json.RawMessage) error {
	if len(path) == 0 {
		return fmt.Errorf("set_field: empty path")
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("decode set_field delta: %w", err)
	}
	switch path[0] {
	case "name":
		state.Name = value
	case "trading_pair":
		state.TradingPair = value
	case "timeframe":
		state.Timeframe = value
	case "description":
		state.Description = value
	default:
		return fmt.Errorf("set_field: unknown field %q", path[0])
	}
	return nil
}

func applySetCondition(state *model.FormState, path []string, raw json.RawMessage) error {
	if len(path) == 0 {
		return fmt.Errorf("set_condition: empty path")
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("decode set_condition delta: %w", err)
	}
	switch path[0] {
	case "entry_condition":
		state.EntryCondition = value
	case "exit_condition":
		state.ExitCondition = value
	case "stop_condition":
		state.StopCondition = value
	default:
		return fmt.Errorf("set_condition: unknown condition %q", path[0])
	}
	return nil
}

func insertIndicator(state *model.FormState, change IndicatorChange) error {
	if _, _, exists := state.IndicatorByID(change.Indicator.ID); exists {
		return fmt.Errorf("indicator id %q already present", change.Indicator.ID)
	}
	if _, exists := state.IndicatorByName(change.Indicator.Name); exists {
		return fmt.Errorf("indicator name %q already declared", change.Indicator.Name)
	}
	idx := change.Index
	if idx < 0 || idx > len(state.Indicators) {
		idx = len(state.Indicators)
	}
	state.Indicators = append(state.Indicators, model.Indicator{})
	copy(state.Indicators[idx+1:], state.Indicators[idx:])
	state.Indicators[idx] = change.Indicator
	return nil
}

func deleteIndicator(state *model.FormState, id string) error {
	_, idx, ok := state.IndicatorByID(id)
	if !ok {
		return fmt.Errorf("no indicator with id %q", id)
	}
	state.Indicators = append(state.Indicators[:idx], state.Indicators[idx+1:]...)
	return nil
}

func moveIndicator(state *model.FormState, id string, to int) error {
	_, from, ok := state.IndicatorByID(id)
	if !ok {
		return fmt.Errorf("no indicator with id %q", id)
	}
	if to < 0 || to >= len(state.Indicators) {
		return fmt.Errorf("move_indicator: index %d out of range", to)
	}
	ind := state.Indicators[from]
	state.Indicators = append(state.Indicators[:from], state.Indicators[from+1:]...)
	state.Indicators = append(state.Indicators, model.Indicator{})
	copy(state.Indicators[to+1:], state.Indicators[to:])
	state.Indicators[to] = ind
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
