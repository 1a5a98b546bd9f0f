package dsl

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yourorg/strategy-sync/internal/model"
)

// CommentMarker is the single comment marker character of the DSL.
const CommentMarker = '#'

// Line is one source line with its comment stripped. Number is 1-based.
type Line struct {
	Number int
	Raw    string
	Code   string
}

// Lex splits text into comment-stripped lines and the extracted comments.
// A line whose trimmed content starts with the marker is a standalone
// comment at (line, indent column); a marker after non-whitespace content
// is an inline comment anchored to the last non-comment column.
func Lex(text string) ([]Line, []model.Comment) {
	rawLines := strings.Split(text, "\n")
	lines := make([]Line, 0, len(rawLines))
	var comments []model.Comment

	for i, raw := range rawLines {
		num := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			lines = append(lines, Line{Number: num, Raw: raw, Code: ""})
			continue
		}
		if trimmed[0] == CommentMarker {
			indent := strings.Index(raw, string(CommentMarker))
			comments = append(comments, model.Comment{
				Line:                num,
				Column:              indent + 1,
				Text:                strings.TrimSpace(strings.TrimPrefix(trimmed, string(CommentMarker))),
				PreservedFromSource: true,
			})
			lines = append(lines, Line{Number: num, Raw: raw, Code: ""})
			continue
		}
		code, comment, col := splitInlineComment(raw)
		if comment != "" {
			comments = append(comments, model.Comment{
				Line:                num,
				Column:              col,
				Text:                comment,
				PreservedFromSource: true,
			})
		}
		lines = append(lines, Line{Number: num, Raw: raw, Code: strings.TrimRight(code, " \t")})
	}
	return lines, comments
}

// ExtractComments returns only the comment stream of text.
func ExtractComments(text string) []model.Comment {
	_, comments := Lex(text)
	return comments
}

// splitInlineComment splits a line at the first comment marker outside of
// quotes. The returned column is the 1-based position of the last
// non-comment, non-space character.
func splitInlineComment(raw string) (code, comment string, col int) {
	inQuote := rune(0)
	for i, r := range raw {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
		case r == '"' || r == '\'':
			inQuote = r
		case r == CommentMarker:
			code = raw[:i]
			comment = strings.TrimSpace(raw[i+1:])
			// Columns are rune positions; byte offsets drift on
			// multibyte content.
			col = utf8.RuneCountInString(strings.TrimRight(code, " \t"))
			if col == 0 {
				col = 1
			}
			return code, comment, col
		}
	}
	return raw, "", 0
}

// BalanceError is a precise, line-addressed diagnostic produced before the
// full parse is attempted.
type BalanceError struct {
	Line    int
	Column  int
	Message string
}

func (e BalanceError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

type openMark struct {
	char rune
	line int
	col  int
}

// CheckBalance verifies matching braces, parentheses and quotes across the
// comment-stripped text, independently of full parsing, so simple mistakes
// get actionable line numbers instead of generic parser errors. Braces
// balance across lines; parentheses and quotes must balance within one
// line, which keeps a single mistake a single diagnostic.
func CheckBalance(text string) []BalanceError {
	lines, _ := Lex(text)
	var errs []BalanceError
	var braces []openMark

	for _, ln := range lines {
		var parens []openMark
		inQuote := rune(0)
		quoteCol := 0
		for i, r := range ln.Code {
			if inQuote != 0 {
				if r == inQuote {
					inQuote = 0
				}
				continue
			}
			switch r {
			case '"', '\'':
				inQuote = r
				quoteCol = i + 1
			case '{':
				braces = append(braces, openMark{char: r, line: ln.Number, col: i + 1})
			case '}':
				if len(braces) == 0 {
					errs = append(errs, BalanceError{
						Line:    ln.Number,
						Column:  i + 1,
						Message: "unmatched '}'",
					})
					continue
				}
				braces = braces[:len(braces)-1]
			case '(':
				parens = append(parens, openMark{char: r, line: ln.Number, col: i + 1})
			case ')':
				if len(parens) == 0 {
					errs = append(errs, BalanceError{
						Line:    ln.Number,
						Column:  i + 1,
						Message: "unmatched ')'",
					})
					continue
				}
				parens = parens[:len(parens)-1]
			}
		}
		for _, open := range parens {
			errs = append(errs, BalanceError{
				Line:    open.line,
				Column:  open.col,
				Message: "unmatched '('",
			})
		}
		if inQuote != 0 {
			errs = append(errs, BalanceError{
				Line:    ln.Number,
				Column:  quoteCol,
				Message: fmt.Sprintf("unclosed %q quote", inQuote),
			})
		}
	}
	for _, open := range braces {
		errs = append(errs, BalanceError{
			Line:    open.line,
			Column:  open.col,
			Message: "unmatched '{'",
		})
	}
	return errs
}

// CheckSeparators pre-screens attribute-looking lines for a missing
// key/value separator. Lines inside condition blocks are exempt: their
// content is opaque expression text.
func CheckSeparators(text string) []BalanceError {
	lines, _ := Lex(text)
	var errs []BalanceError
	depth := 0
	conditionDepth := -1
	for _, ln := range lines {
		code := strings.TrimSpace(ln.Code)
		if code == "" {
			continue
		}
		opensCondition := isConditionOpener(code)
		inCondition := conditionDepth >= 0 && depth > conditionDepth
		if !inCondition && !opensCondition && depth > 0 &&
			!strings.ContainsAny(code, ":{}") && !strings.HasPrefix(code, "indicator ") {
			errs = append(errs, BalanceError{
				Line:    ln.Number,
				Column:  1,
				Message: fmt.Sprintf("missing ':' separator in %q", code),
			})
		}
		for _, r := range code {
			switch r {
			case '{':
				if opensCondition && conditionDepth < 0 {
					conditionDepth = depth
				}
				depth++
			case '}':
				depth--
				if conditionDepth >= 0 && depth <= conditionDepth {
					conditionDepth = -1
				}
			}
		}
	}
	return errs
}

func isConditionOpener(code string) bool {
	for _, kind := range []string{"entry", "exit", "stop"} {
		if strings.HasPrefix(code, kind+" ") || strings.HasPrefix(code, kind+"{") {
			return true
		}
	}
	return false
}
