package dsl

import (
	"strings"
	"unicode"
)

// ModuleName derives the module-style block name from a human-readable
// strategy name: non-alphanumerics become word boundaries, words are
// capitalized, and all-uppercase tokens (acronyms) are kept verbatim.
// "momentum breakout v2" -> "MomentumBreakoutV2", "RSI strategy" -> "RSIStrategy".
// The result is always a legal identifier: a leading digit gets an
// underscore prefix and a name with no usable characters falls back to
// "Strategy", so rendered text always parses back.
func ModuleName(name string) string {
	var b strings.Builder
	for _, word := range splitWords(name) {
		if isAllUpper(word) && len(word) > 1 {
			b.WriteString(word)
			continue
		}
		r := []rune(word)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	out := b.String()
	if out == "" {
		return "Strategy"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "_" + out
	}
	return out
}

// TitleizeModule is the inverse direction: splits a module-style name back
// into a human-readable title, keeping acronym runs together.
// "RSIStrategy" -> "RSI Strategy", "MomentumBreakout" -> "Momentum Breakout".
// A leading underscore is the digit-prefix artifact of ModuleName and is
// stripped.
func TitleizeModule(module string) string {
	runes := []rune(strings.TrimLeft(module, "_"))
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsDigit(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// end of an acronym run followed by a capitalized word
			boundary = true
		}
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))
	return strings.Join(words, " ")
}

// splitWords keeps only ASCII letters and digits, the identifier alphabet
// of the grammar; anything else is a word boundary.
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	for _, r := range s {
		if isASCIIAlnum(r) {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// isIdentifier reports whether s is a bare identifier the grammar accepts
// unquoted: ASCII letters or underscore, digits after the first character.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
