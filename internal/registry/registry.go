// Package registry holds the static indicator-type registry: the subset of
// the DSL runtime's indicator catalog this service needs to validate
// declarations and order rendered parameters.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// ParameterSpec describes one parameter of an indicator type.
type ParameterSpec struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // "int", "float", "string", "enum"
	Required bool     `json:"required"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Default  any      `json:"default,omitempty"`
	Enum     []string `json:"enum,omitempty"`
}

// Definition describes one registered indicator type.
type Definition struct {
	Type        string          `json:"type"`
	DisplayName string          `json:"display_name"`
	Category    string          `json:"category"`
	Parameters  []ParameterSpec `json:"parameters"`
	OutputShape string          `json:"output_shape"` // "single" or "multi"
}

// Parameter returns the spec for the named parameter, if defined.
func (d *Definition) Parameter(name string) (*ParameterSpec, bool) {
	for i := range d.Parameters {
		if d.Parameters[i].Name == name {
			return &d.Parameters[i], true
		}
	}
	return nil, false
}

// PeriodMin and PeriodMax bound every period-like parameter regardless of
// per-type schema narrowing.
const (
	PeriodMin = 1
	PeriodMax = 1000
)

// IsPeriodParam reports whether a parameter name is period-like.
func IsPeriodParam(name string) bool {
	return name == "period" || strings.HasSuffix(name, "_period")
}

func fp(v float64) *float64 { return &v }

var definitions = map[string]Definition{
	"rsi": {
		Type: "rsi", DisplayName: "Relative Strength Index", Category: "momentum", OutputShape: "single",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(2), Max: fp(100), Default: 14.0},
			{Name: "source", Type: "enum", Enum: []string{"open", "high", "low", "close"}, Default: "close"},
		},
	},
	"sma": {
		Type: "sma", DisplayName: "Simple Moving Average", Category: "trend", OutputShape: "single",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(2), Max: fp(500), Default: 20.0},
			{Name: "source", Type: "enum", Enum: []string{"open", "high", "low", "close"}, Default: "close"},
		},
	},
	"ema": {
		Type: "ema", DisplayName: "Exponential Moving Average", Category: "trend", OutputShape: "single",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(2), Max: fp(500), Default: 20.0},
			{Name: "source", Type: "enum", Enum: []string{"open", "high", "low", "close"}, Default: "close"},
		},
	},
	"wma": {
		Type: "wma", DisplayName: "Weighted Moving Average", Category: "trend", OutputShape: "single",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(2), Max: fp(500), Default: 20.0},
		},
	},
	"macd": {
		Type: "macd", DisplayName: "MACD", Category: "momentum", OutputShape: "multi",
		Parameters: []ParameterSpec{
			{Name: "fast_period", Type: "int", Required: true, Min: fp(2), Max: fp(100), Default: 12.0},
			{Name: "slow_period", Type: "int", Required: true, Min: fp(2), Max: fp(100), Default: 26.0},
			{Name: "signal_period", Type: "int", Required: true, Min: fp(2), Max: fp(100), Default: 9.0},
		},
	},
	"bollinger": {
		Type: "bollinger", DisplayName: "Bollinger Bands", Category: "volatility", OutputShape: "multi",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(2), Max: fp(100), Default: 20.0},
			{Name: "deviations", Type: "float", Required: true, Min: fp(0.1), Max: fp(5), Default: 2.0},
		},
	},
	"stochastic": {
		Type: "stochastic", DisplayName: "Stochastic Oscillator", Category: "momentum", OutputShape: "multi",
		Parameters: []ParameterSpec{
			{Name: "k_period", Type: "int", Required: true, Min: fp(1), Max: fp(100), Default: 14.0},
			{Name: "d_period", Type: "int", Required: true, Min: fp(1), Max: fp(100), Default: 3.0},
			{Name: "slowing", Type: "int", Min: fp(1), Max: fp(100), Default: 3.0},
		},
	},
	"atr": {
		Type: "atr", DisplayName: "Average True Range", Category: "volatility", OutputShape: "single",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(1), Max: fp(100), Default: 14.0},
		},
	},
	"adx": {
		Type: "adx", DisplayName: "Average Directional Index", Category: "trend", OutputShape: "single",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(2), Max: fp(100), Default: 14.0},
		},
	},
	"cci": {
		Type: "cci", DisplayName: "Commodity Channel Index", Category: "momentum", OutputShape: "single",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(2), Max: fp(200), Default: 20.0},
		},
	},
	"obv": {
		Type: "obv", DisplayName: "On-Balance Volume", Category: "volume", OutputShape: "single",
	},
	"vwap": {
		Type: "vwap", DisplayName: "Volume-Weighted Average Price", Category: "volume", OutputShape: "single",
	},
	"mfi": {
		Type: "mfi", DisplayName: "Money Flow Index", Category: "volume", OutputShape: "single",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(2), Max: fp(100), Default: 14.0},
		},
	},
	"roc": {
		Type: "roc", DisplayName: "Rate of Change", Category: "momentum", OutputShape: "single",
		Parameters: []ParameterSpec{
			{Name: "period", Type: "int", Required: true, Min: fp(1), Max: fp(200), Default: 12.0},
		},
	},
}

// Get returns the definition for an indicator type.
func Get(indicatorType string) (*Definition, error) {
	def, ok := definitions[indicatorType]
	if !ok {
		return nil, fmt.Errorf("unknown indicator type %q", indicatorType)
	}
	return &def, nil
}

// Exists reports whether the type is registered.
func Exists(indicatorType string) bool {
	_, ok := definitions[indicatorType]
	return ok
}

// Types returns all registered type names, sorted.
func Types() []string {
	out := make([]string, 0, len(definitions))
	for t := range definitions {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// All returns all definitions sorted by type name.
func All() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, t := range Types() {
		out = append(out, definitions[t])
	}
	return out
}

// Builtins are function-like identifiers allowed in condition expressions
// besides indicator names.
var Builtins = map[string]bool{
	"abs":        true,
	"min":        true,
	"max":        true,
	"crossover":  true,
	"crossunder": true,
}
