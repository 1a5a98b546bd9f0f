// Package validator runs the three-pass validation pipeline over DSL text:
// syntax, semantic, then unsupported-feature detection. Every path returns
// a ValidationResult value; nothing here panics outward or returns an error.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yourorg/strategy-sync/internal/dsl"
	"github.com/yourorg/strategy-sync/internal/model"
	"github.com/yourorg/strategy-sync/internal/registry"
)

var tradingPairRe = regexp.MustCompile(`^[A-Z]{3,10}/[A-Z]{3,10}$`)

// Validate runs all passes over text, short-circuiting on the first
// failing pass.
func Validate(text string) model.ValidationResult {
	result := model.ValidationResult{
		Valid:       true,
		Errors:      []model.ValidationError{},
		Warnings:    []model.ValidationWarning{},
		ValidatedAt: time.Now().UTC(),
	}

	// Pass 1: syntax. Balance and separator pre-screens run before the
	// full parse so simple mistakes get precise line numbers.
	for _, be := range dsl.CheckBalance(text) {
		result.Errors = append(result.Errors, model.ValidationError{
			Kind: model.KindSyntax, Message: be.Message, Line: be.Line, Column: be.Column, Severity: model.SeverityError,
		})
	}
	for _, be := range dsl.CheckSeparators(text) {
		result.Errors = append(result.Errors, model.ValidationError{
			Kind: model.KindSyntax, Message: be.Message, Line: be.Line, Column: be.Column, Severity: model.SeverityError,
		})
	}
	if len(result.Errors) > 0 {
		result.Valid = false
		return result
	}

	ast, _, err := dsl.Parse(text)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, classifyParseError(err))
		return result
	}

	state, err := dsl.ToState(ast)
	if err != nil {
		result.Valid = false
		var synErr *dsl.SyntaxError
		if errors.As(err, &synErr) {
			result.Errors = append(result.Errors, model.ValidationError{
				Kind: model.KindSemantic, Message: synErr.Message, Line: synErr.Line, Column: synErr.Column, Severity: model.SeverityError,
			})
		} else {
			result.Errors = append(result.Errors, model.ValidationError{
				Kind: model.KindSemantic, Message: err.Error(), Severity: model.SeverityError,
			})
		}
		return result
	}

	// Pass 2: semantic.
	semanticErrs, unregisteredCalls := CheckState(state)
	if len(semanticErrs) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, semanticErrs...)
		return result
	}

	// Pass 3: unsupported features. Warnings only; the text stays valid
	// and executable by the DSL runtime, just not form-editable.
	result.UnsupportedFeatures = append(ScanUnsupported(text), unregisteredCalls...)
	for _, feat := range result.UnsupportedFeatures {
		result.Warnings = append(result.Warnings, model.ValidationWarning{
			Message: fmt.Sprintf("unsupported in structured form (DSL-only): %s", feat),
		})
	}
	return result
}

func classifyParseError(err error) model.ValidationError {
	var synErr *dsl.SyntaxError
	if errors.As(err, &synErr) {
		return model.ValidationError{
			Kind: model.KindSyntax, Message: synErr.Message, Line: synErr.Line, Column: synErr.Column, Severity: model.SeverityError,
		}
	}
	var crash *dsl.CrashError
	if errors.As(err, &crash) {
		return model.ValidationError{
			Kind: model.KindParserCrash, Message: crash.Error(), Severity: model.SeverityError,
		}
	}
	return model.ValidationError{Kind: model.KindSyntax, Message: err.Error(), Severity: model.SeverityError}
}

// CheckState runs the semantic pass over a mapped state. It returns the
// blocking findings plus any unregistered function-like identifiers seen in
// conditions (those become unsupported-feature warnings, not errors).
func CheckState(state *model.FormState) ([]model.ValidationError, []string) {
	var errs []model.ValidationError

	if state.TradingPair != "" && !tradingPairRe.MatchString(state.TradingPair) {
		errs = append(errs, semanticErr("trading_pair",
			fmt.Sprintf("trading pair %q must match SYMBOL/SYMBOL (3-10 uppercase letters each side)", state.TradingPair)))
	}
	if state.Timeframe != "" && !model.IsValidTimeframe(state.Timeframe) {
		errs = append(errs, semanticErr("timeframe",
			fmt.Sprintf("timeframe %q is not one of %s", state.Timeframe, strings.Join(model.Timeframes, " "))))
	}

	for i := range state.Indicators {
		errs = append(errs, checkIndicator(&state.Indicators[i], i)...)
	}

	var unregistered []string
	for _, cond := range []struct{ path, body string }{
		{"entry_condition", state.EntryCondition},
		{"exit_condition", state.ExitCondition},
		{"stop_condition", state.StopCondition},
	} {
		condErrs, calls := checkCondition(state, cond.path, cond.body)
		errs = append(errs, condErrs...)
		unregistered = append(unregistered, calls...)
	}
	return errs, unregistered
}

func checkIndicator(ind *model.Indicator, index int) []model.ValidationError {
	var errs []model.ValidationError
	path := fmt.Sprintf("indicators[%d]", index)

	def, err := registry.Get(ind.Type)
	if err != nil {
		errs = append(errs, semanticErr(path, fmt.Sprintf("indicator %q: %v", ind.Name, err)))
		return errs
	}

	for _, spec := range def.Parameters {
		if !spec.Required {
			continue
		}
		if _, ok := ind.Parameters[spec.Name]; !ok {
			errs = append(errs, semanticErr(path,
				fmt.Sprintf("indicator %q (%s) requires parameter %q", ind.Name, ind.Type, spec.Name)))
		}
	}

	for name, value := range ind.Parameters {
		f, isNumber := toFloat(value)
		if registry.IsPeriodParam(name) {
			if !isNumber {
				errs = append(errs, semanticErr(path,
					fmt.Sprintf("indicator %q: parameter %q must be a number", ind.Name, name)))
				continue
			}
			if f < registry.PeriodMin || f > registry.PeriodMax {
				errs = append(errs, semanticErr(path,
					fmt.Sprintf("indicator %q: parameter %q must be between %d and %d, got %s",
						ind.Name, name, registry.PeriodMin, registry.PeriodMax, trimFloat(f))))
				continue
			}
		}
		spec, known := def.Parameter(name)
		if !known {
			continue // permissive for extras; registry may lag the runtime
		}
		if isNumber {
			if spec.Min != nil && f < *spec.Min {
				errs = append(errs, semanticErr(path,
					fmt.Sprintf("indicator %q: parameter %q below minimum %s", ind.Name, name, trimFloat(*spec.Min))))
			}
			if spec.Max != nil && f > *spec.Max {
				errs = append(errs, semanticErr(path,
					fmt.Sprintf("indicator %q: parameter %q above maximum %s", ind.Name, name, trimFloat(*spec.Max))))
			}
		}
		if len(spec.Enum) > 0 {
			s, _ := value.(string)
			if !containsString(spec.Enum, s) {
				errs = append(errs, semanticErr(path,
					fmt.Sprintf("indicator %q: parameter %q must be one of %s", ind.Name, name, strings.Join(spec.Enum, " "))))
			}
		}
	}
	return errs
}

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

var conditionKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "true": true, "false": true,
}

// checkCondition scans an opaque condition string: every identifier must
// resolve to a declared indicator or a market field, and the expression
// must not end with a dangling boolean operator.
func checkCondition(state *model.FormState, path, body string) ([]model.ValidationError, []string) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	var errs []model.ValidationError
	var unregistered []string

	trimmed := strings.TrimSpace(body)
	fields := strings.Fields(trimmed)
	if len(fields) > 0 {
		last := strings.ToLower(fields[len(fields)-1])
		if last == "and" || last == "or" || last == "not" {
			errs = append(errs, semanticErr(path,
				fmt.Sprintf("condition ends with dangling operator %q", last)))
		}
	}

	for _, loc := range identRe.FindAllStringIndex(body, -1) {
		ident := body[loc[0]:loc[1]]
		lower := strings.ToLower(ident)
		if conditionKeywords[lower] {
			continue
		}
		isCall := loc[1] < len(body) && nextNonSpace(body[loc[1]:]) == '('
		if isCall {
			if registry.Builtins[lower] {
				continue
			}
			if _, declares := state.IndicatorByName(ident); declares {
				continue
			}
			unregistered = append(unregistered, fmt.Sprintf("call to unregistered function %q in %s", ident, path))
			continue
		}
		if model.IsMarketField(lower) {
			continue
		}
		if _, ok := state.IndicatorByName(ident); ok {
			continue
		}
		errs = append(errs, semanticErr(path,
			fmt.Sprintf("undefined identifier %q: not a declared indicator or market field", ident)))
	}
	return errs, unregistered
}

var (
	functionDefRe = regexp.MustCompile(`^\s*(def|defp|fn)\b`)
	controlFlowRe = regexp.MustCompile(`^\s*(if|unless|case|cond)\b`)
	directiveRe   = regexp.MustCompile(`^\s*(import|require|use|alias)\b`)
)

// ScanUnsupported detects DSL constructs the structured form cannot
// represent. They do not invalidate the text; they mean "DSL-only".
func ScanUnsupported(text string) []string {
	var features []string
	lines, _ := dsl.Lex(text)
	for _, ln := range lines {
		code := ln.Code
		if strings.TrimSpace(code) == "" {
			continue
		}
		switch {
		case functionDefRe.MatchString(code):
			features = append(features, fmt.Sprintf("custom function definition on line %d", ln.Number))
		case controlFlowRe.MatchString(code):
			features = append(features, fmt.Sprintf("control flow construct on line %d", ln.Number))
		case directiveRe.MatchString(code):
			features = append(features, fmt.Sprintf("module directive on line %d", ln.Number))
		}
	}
	return features
}

func semanticErr(path, message string) model.ValidationError {
	return model.ValidationError{
		Kind:     model.KindSemantic,
		Message:  message,
		Path:     path,
		Severity: model.SeverityError,
	}
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	}
	return 0, false
}

func trimFloat(f float64) string {
	return dsl.FormatScalar(f)
}

func nextNonSpace(s string) byte {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return s[i]
		}
	}
	return 0
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
