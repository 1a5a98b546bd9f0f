package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// FormState is the structured (non-text) view of a strategy definition.
// It is the counterpart of the DSL text view; the synchronizer keeps the
// two consistent.
type FormState struct {
	Name               string          `json:"name"`
	TradingPair        string          `json:"trading_pair"`
	Timeframe          string          `json:"timeframe"`
	Description        string          `json:"description,omitempty"`
	Indicators         []Indicator     `json:"indicators"`
	EntryCondition     string          `json:"entry_condition,omitempty"`
	ExitCondition      string          `json:"exit_condition,omitempty"`
	StopCondition      string          `json:"stop_condition,omitempty"`
	PositionSizing     *PositionSizing `json:"position_sizing,omitempty"`
	RiskParameters     *RiskParameters `json:"risk_parameters,omitempty"`
	Comments           []Comment       `json:"comments,omitempty"`
	Version            int             `json:"version"`
	LastSynchronizedAt *time.Time      `json:"last_synchronized_at,omitempty"`
}

// IndicatorByName returns the indicator declared under the given name.
func (s *FormState) IndicatorByName(name string) (*Indicator, bool) {
	for i := range s.Indicators {
		if s.Indicators[i].Name == name {
			return &s.Indicators[i], true
		}
	}
	return nil, false
}

// IndicatorByID returns the indicator with the given stable identifier and
// its current list position.
func (s *FormState) IndicatorByID(id string) (*Indicator, int, bool) {
	for i := range s.Indicators {
		if s.Indicators[i].ID == id {
			return &s.Indicators[i], i, true
		}
	}
	return nil, -1, false
}

// Clone returns a deep copy of the state. The event applier works on
// copies so that an inverse can always restore the original exactly.
func (s *FormState) Clone() *FormState {
	out := *s
	out.Indicators = make([]Indicator, len(s.Indicators))
	for i, ind := range s.Indicators {
		out.Indicators[i] = ind
		out.Indicators[i].Parameters = make(map[string]any, len(ind.Parameters))
		for k, v := range ind.Parameters {
			out.Indicators[i].Parameters[k] = v
		}
	}
	if s.PositionSizing != nil {
		ps := *s.PositionSizing
		out.PositionSizing = &ps
	}
	if s.RiskParameters != nil {
		rp := *s.RiskParameters
		out.RiskParameters = &rp
	}
	out.Comments = append([]Comment(nil), s.Comments...)
	if s.LastSynchronizedAt != nil {
		t := *s.LastSynchronizedAt
		out.LastSynchronizedAt = &t
	}
	return &out
}

// Value implements the driver.Valuer interface for FormState
func (s FormState) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for FormState
func (s *FormState) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, s)
}

// Indicator is one declared indicator in a strategy. Name is unique within
// a FormState; ID is a stable synthetic identifier used for path-addressed
// edits, independent of list position.
type Indicator struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters"`
}

// PositionSizing holds the sizing block. At least one mode must be present
// when rendering to text.
type PositionSizing struct {
	PercentageOfCapital *float64 `json:"percentage_of_capital,omitempty"`
	FixedAmount         *float64 `json:"fixed_amount,omitempty"`
	MaxPositionSize     *float64 `json:"max_position_size,omitempty"`
}

// HasMode reports whether any sizing mode is set.
func (p *PositionSizing) HasMode() bool {
	return p != nil && (p.PercentageOfCapital != nil || p.FixedAmount != nil)
}

// RiskParameters holds the risk block. All fields are optional.
type RiskParameters struct {
	StopLossPercent    *float64 `json:"stop_loss_percent,omitempty"`
	TakeProfitPercent  *float64 `json:"take_profit_percent,omitempty"`
	MaxDrawdownPercent *float64 `json:"max_drawdown_percent,omitempty"`
	MaxOpenPositions   *int     `json:"max_open_positions,omitempty"`
	TrailingStop       *bool    `json:"trailing_stop,omitempty"`
}

// Comment is a preserved comment line from the text view. It attaches to a
// line position in the text, not to any FormState field.
type Comment struct {
	Line                int    `json:"line"`
	Column              int    `json:"column"`
	Text                string `json:"text"`
	PreservedFromSource bool   `json:"preserved_from_source"`
}

// MarketFields are the built-in price/volume identifiers usable in
// condition expressions alongside declared indicator names.
var MarketFields = []string{"open", "high", "low", "close", "volume"}

// IsMarketField reports whether name is a built-in market field.
func IsMarketField(name string) bool {
	for _, f := range MarketFields {
		if f == name {
			return true
		}
	}
	return false
}

// Timeframes is the fixed set of accepted timeframe codes.
var Timeframes = []string{"1m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "12h", "1d", "3d", "1w", "1M"}

// IsValidTimeframe reports whether code is an accepted timeframe.
func IsValidTimeframe(code string) bool {
	for _, tf := range Timeframes {
		if tf == code {
			return true
		}
	}
	return false
}
