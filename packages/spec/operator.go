package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Operator is the closed set of assertion operators. Keeping it a small
// enum makes dispatch exhaustive and an unknown name a definition error
// at load time, never a runtime failure.
type Operator int

const (
	OpInvalid Operator = iota
	OpEquals
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpIn
	OpMatches
	OpNotEmpty
	OpExists
	OpLength
	OpType
	OpSchema
	OpPredicate
)

var operatorNames = map[Operator]string{
	OpEquals:         "eq",
	OpNotEquals:      "ne",
	OpGreaterThan:    "gt",
	OpGreaterOrEqual: "gte",
	OpLessThan:       "lt",
	OpLessOrEqual:    "lte",
	OpContains:       "contains",
	OpIn:             "in",
	OpMatches:        "matches",
	OpNotEmpty:       "notEmpty",
	OpExists:         "exists",
	OpLength:         "length",
	OpType:           "type",
	OpSchema:         "schema",
	OpPredicate:      "predicate",
}

// operatorAliases maps every accepted spelling to its operator.
var operatorAliases = map[string]Operator{
	"eq": OpEquals, "equals": OpEquals, "==": OpEquals,
	"ne": OpNotEquals, "not_equals": OpNotEquals, "!=": OpNotEquals,
	"gt": OpGreaterThan, ">": OpGreaterThan,
	"gte": OpGreaterOrEqual, "ge": OpGreaterOrEqual, ">=": OpGreaterOrEqual,
	"lt": OpLessThan, "<": OpLessThan,
	"lte": OpLessOrEqual, "le": OpLessOrEqual, "<=": OpLessOrEqual,
	"contains":  OpContains,
	"in":        OpIn,
	"matches":   OpMatches,
	"regex":     OpMatches,
	"notEmpty":  OpNotEmpty,
	"not_empty": OpNotEmpty,
	"exists":    OpExists,
	"length":    OpLength,
	"len":       OpLength,
	"type":      OpType,
	"schema":    OpSchema,
	"predicate": OpPredicate,
	"custom":    OpPredicate,
}

// ParseOperator resolves an operator name or alias.
func ParseOperator(name string) (Operator, error) {
	if op, ok := operatorAliases[name]; ok {
		return op, nil
	}
	return OpInvalid, fmt.Errorf("unknown operator: %q", name)
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "invalid"
}

func (o *Operator) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	op, err := ParseOperator(raw)
	if err != nil {
		return err
	}
	*o = op
	return nil
}
