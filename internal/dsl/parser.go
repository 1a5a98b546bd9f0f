package dsl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourorg/strategy-sync/internal/model"
)

// SyntaxError is a malformed-text failure with a best-effort position.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Message)
}

// CrashError wraps an internal parser fault. Parse converts any panic into
// a CrashError so malformed input degrades to a reported error and never
// terminates the caller.
type CrashError struct {
	Cause any
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("parser crash: %v", e.Cause)
}

var (
	strategyOpenRe  = regexp.MustCompile(`^strategy\s+([A-Za-z_][A-Za-z0-9_]*)\s*\{$`)
	indicatorRe     = regexp.MustCompile(`^indicator\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)$`)
	blockOpenRe     = regexp.MustCompile(`^([a-z_]+)\s*\{$`)
	inlineBlockRe   = regexp.MustCompile(`^([a-z_]+)\s*\{(.+)\}$`)
	attributeLineRe = regexp.MustCompile(`^([a-z_][a-z0-9_]*)\s*:\s*(.*)$`)
)

// Parse converts DSL text into an AST plus the extracted comment stream.
func Parse(text string) (ast *AST, comments []model.Comment, err error) {
	defer func() {
		if r := recover(); r != nil {
			ast = nil
			err = &CrashError{Cause: r}
		}
	}()

	lines, comments := Lex(text)
	p := &parser{lines: lines}
	node, err := p.parseStrategy()
	if err != nil {
		return nil, comments, err
	}
	return &AST{Strategy: node}, comments, nil
}

type parser struct {
	lines []Line
	pos   int
}

func (p *parser) next() (Line, bool) {
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		p.pos++
		if strings.TrimSpace(ln.Code) != "" {
			return ln, true
		}
	}
	return Line{}, false
}

func (p *parser) parseStrategy() (*StrategyNode, error) {
	ln, ok := p.next()
	if !ok {
		return nil, &SyntaxError{Line: 1, Column: 1, Message: "empty input, expected strategy block"}
	}
	code := strings.TrimSpace(ln.Code)
	node := &StrategyNode{Line: ln.Number}
	wrapped := false
	if m := strategyOpenRe.FindStringSubmatch(code); m != nil {
		node.ModuleName = m[1]
		wrapped = true
	} else {
		// Bare documents (attribute lines without a strategy wrapper) are
		// accepted; the body starts at the first line.
		p.pos--
	}

	for {
		ln, ok := p.next()
		if !ok {
			if wrapped {
				return nil, &SyntaxError{Line: node.Line, Column: 1, Message: "strategy block is not closed"}
			}
			return node, nil
		}
		code := strings.TrimSpace(ln.Code)

		switch {
		case code == "}":
			if !wrapped {
				return nil, &SyntaxError{Line: ln.Number, Column: 1, Message: "unexpected '}'"}
			}
			return node, nil

		case strings.HasPrefix(code, "indicator "):
			ind, err := parseIndicatorLine(code, ln.Number)
			if err != nil {
				return nil, err
			}
			node.Indicators = append(node.Indicators, *ind)

		case inlineBlockRe.MatchString(code):
			m := inlineBlockRe.FindStringSubmatch(code)
			if err := p.addBlock(node, m[1], strings.TrimSpace(m[2]), nil, ln.Number); err != nil {
				return nil, err
			}

		case blockOpenRe.MatchString(code):
			m := blockOpenRe.FindStringSubmatch(code)
			body, entries, err := p.parseBlockBody(m[1], ln.Number)
			if err != nil {
				return nil, err
			}
			if err := p.addBlock(node, m[1], body, entries, ln.Number); err != nil {
				return nil, err
			}

		case attributeLineRe.MatchString(code):
			m := attributeLineRe.FindStringSubmatch(code)
			node.Attributes = append(node.Attributes, AttributeNode{
				Key:   m[1],
				Value: ParseScalar(strings.TrimSpace(m[2])),
				Line:  ln.Number,
			})

		default:
			return nil, &SyntaxError{Line: ln.Number, Column: 1, Message: fmt.Sprintf("unrecognized declaration %q", code)}
		}
	}
}

// parseBlockBody reads lines until the matching close brace. Condition
// blocks keep their body verbatim; key/value blocks are parsed per line.
func (p *parser) parseBlockBody(kind string, openLine int) (string, []AttributeNode, error) {
	var bodyLines []string
	var entries []AttributeNode
	keyValue := kind == "position_sizing" || kind == "risk"

	for {
		ln, ok := p.next()
		if !ok {
			return "", nil, &SyntaxError{Line: openLine, Column: 1, Message: fmt.Sprintf("%s block is not closed", kind)}
		}
		code := strings.TrimSpace(ln.Code)
		if code == "}" {
			return strings.Join(bodyLines, "\n"), entries, nil
		}
		if keyValue {
			m := attributeLineRe.FindStringSubmatch(code)
			if m == nil {
				return "", nil, &SyntaxError{Line: ln.Number, Column: 1, Message: fmt.Sprintf("expected 'key: value' in %s block, got %q", kind, code)}
			}
			entries = append(entries, AttributeNode{Key: m[1], Value: ParseScalar(strings.TrimSpace(m[2])), Line: ln.Number})
			continue
		}
		bodyLines = append(bodyLines, code)
	}
}

func (p *parser) addBlock(node *StrategyNode, kind, body string, entries []AttributeNode, line int) error {
	switch kind {
	case "entry", "exit", "stop":
		if _, dup := node.Condition(kind); dup {
			return &SyntaxError{Line: line, Column: 1, Message: fmt.Sprintf("duplicate %s block", kind)}
		}
		node.Conditions = append(node.Conditions, ConditionNode{Kind: kind, Body: body, Line: line})
	case "position_sizing":
		if node.Sizing != nil {
			return &SyntaxError{Line: line, Column: 1, Message: "duplicate position_sizing block"}
		}
		if entries == nil {
			var err error
			if entries, err = parseInlineEntries(body, line); err != nil {
				return err
			}
		}
		node.Sizing = &KVBlockNode{Kind: kind, Entries: entries, Line: line}
	case "risk":
		if node.Risk != nil {
			return &SyntaxError{Line: line, Column: 1, Message: "duplicate risk block"}
		}
		if entries == nil {
			var err error
			if entries, err = parseInlineEntries(body, line); err != nil {
				return err
			}
		}
		node.Risk = &KVBlockNode{Kind: kind, Entries: entries, Line: line}
	default:
		return &SyntaxError{Line: line, Column: 1, Message: fmt.Sprintf("unknown block %q", kind)}
	}
	return nil
}

func parseInlineEntries(body string, line int) ([]AttributeNode, error) {
	var entries []AttributeNode
	for _, part := range splitArgs(body) {
		m := attributeLineRe.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return nil, &SyntaxError{Line: line, Column: 1, Message: fmt.Sprintf("expected 'key: value', got %q", part)}
		}
		entries = append(entries, AttributeNode{Key: m[1], Value: ParseScalar(strings.TrimSpace(m[2])), Line: line})
	}
	return entries, nil
}

func parseIndicatorLine(code string, line int) (*IndicatorNode, error) {
	m := indicatorRe.FindStringSubmatch(code)
	if m == nil {
		return nil, &SyntaxError{Line: line, Column: 1, Message: fmt.Sprintf("expected 'indicator <name> = <type>(args)', got %q", code)}
	}
	node := &IndicatorNode{Name: m[1], Type: m[2], Line: line}
	args := strings.TrimSpace(m[3])
	if args == "" {
		return node, nil
	}
	for _, part := range splitArgs(args) {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, &SyntaxError{Line: line, Column: 1, Message: fmt.Sprintf("expected 'key: value' argument, got %q", part)}
		}
		node.Params = append(node.Params, ParamNode{
			Key:   strings.TrimSpace(kv[0]),
			Value: ParseScalar(strings.TrimSpace(kv[1])),
		})
	}
	return node, nil
}

// splitArgs splits on commas outside of quotes.
func splitArgs(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := rune(0)
	for _, r := range s {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			inQuote = r
			cur.WriteRune(r)
		case r == ',':
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	return parts
}

// ParseScalar coerces a raw attribute value: quoted strings are unquoted,
// booleans and numbers are typed, anything else stays a bare string.
func ParseScalar(raw string) any {
	if len(raw) >= 2 {
		if (raw[0] == '"' && raw[len(raw)-1] == '"') || (raw[0] == '\'' && raw[len(raw)-1] == '\'') {
			return raw[1 : len(raw)-1]
		}
	}
	if strings.EqualFold(raw, "true") {
		return true
	}
	if strings.EqualFold(raw, "false") {
		return false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
