package dsl

// AST is the plain tree produced by Parse. It carries source positions for
// error reporting but no behavior; mapping to and from FormState lives in
// the structural mapper.
type AST struct {
	Strategy *StrategyNode
}

// StrategyNode is the single top-level strategy block.
type StrategyNode struct {
	ModuleName string
	Line       int
	Attributes []AttributeNode
	Indicators []IndicatorNode
	Conditions []ConditionNode
	Sizing     *KVBlockNode
	Risk       *KVBlockNode
}

// AttributeNode is one "key: value" line in the strategy body.
type AttributeNode struct {
	Key   string
	Value any
	Line  int
}

// IndicatorNode is one "indicator name = type(args)" declaration.
// Params keeps source order; rendering applies its own stable ordering.
type IndicatorNode struct {
	Name   string
	Type   string
	Params []ParamNode
	Line   int
}

// ParamNode is one "key: value" argument of an indicator declaration.
type ParamNode struct {
	Key   string
	Value any
}

// ConditionNode is one entry/exit/stop block. Body is the verbatim
// expression text, never parsed into an expression tree.
type ConditionNode struct {
	Kind string // "entry", "exit" or "stop"
	Body string
	Line int
}

// KVBlockNode is a position_sizing or risk block of key/value entries.
type KVBlockNode struct {
	Kind    string
	Entries []AttributeNode
	Line    int
}

// Attribute returns the value of the named attribute, if present.
func (n *StrategyNode) Attribute(key string) (any, bool) {
	for _, a := range n.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return nil, false
}

// Condition returns the body of the named condition block, if present.
func (n *StrategyNode) Condition(kind string) (string, bool) {
	for _, c := range n.Conditions {
		if c.Kind == kind {
			return c.Body, true
		}
	}
	return "", false
}
