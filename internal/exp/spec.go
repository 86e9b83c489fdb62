package exp

import (
	"fmt"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Spec is the YAML form of an expression tree, used by query files and
// translation scenarios.
//
// Example:
//
//	op: and
//	args:
//	  - {op: "=", path: name, value: Foo}
//	  - {op: "=", path: age, value: null}
type Spec struct {
	Op     string `yaml:"op"`
	Path   string `yaml:"path,omitempty"`
	DbPath string `yaml:"db_path,omitempty"`
	Value  any    `yaml:"value,omitempty"`
	Values []any  `yaml:"values,omitempty"`
	Args   []Spec `yaml:"args,omitempty"`
	Escape string `yaml:"escape,omitempty"`
}

// comparisonOps maps spec operator names to binary comparison types.
var comparisonOps = map[string]Type{
	"=":                    EqualTo,
	"!=":                   NotEqualTo,
	"<>":                   NotEqualTo,
	"<":                    LessThan,
	">":                    GreaterThan,
	"<=":                   LessThanEqualTo,
	">=":                   GreaterThanEqualTo,
	"like":                 Like,
	"not like":             NotLike,
	"like_ignore_case":     LikeIgnoreCase,
	"not like_ignore_case": NotLikeIgnoreCase,
	"+":                    Add,
	"-":                    Subtract,
	"*":                    Multiply,
	"/":                    Divide,
	"&":                    BitwiseAnd,
	"|":                    BitwiseOr,
	"^":                    BitwiseXor,
	"<<":                   BitwiseLeftShift,
	">>":                   BitwiseRightShift,
}

// ParseSpec decodes a YAML document into an Expression.
func ParseSpec(data []byte) (*Expression, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return s.Build()
}

// Build converts the spec into an Expression tree.
func (s Spec) Build() (*Expression, error) {
	switch s.Op {
	case "and", "or":
		children, err := buildAll(s.Args)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, fmt.Errorf("%w: %q needs args", ErrInvalidSpec, s.Op)
		}
		if s.Op == "and" {
			return JoinExp(And, children), nil
		}
		return JoinExp(Or, children), nil

	case "not", "negative", "~":
		if len(s.Args) != 1 {
			return nil, fmt.Errorf("%w: %q needs exactly one arg", ErrInvalidSpec, s.Op)
		}
		child, err := s.Args[0].Build()
		if err != nil {
			return nil, err
		}
		switch s.Op {
		case "not":
			return child.NotExp(), nil
		case "negative":
			return newNode(Negative, child), nil
		}
		return newNode(BitwiseNot, child), nil

	case "true":
		return ExpTrue(), nil
	case "false":
		return ExpFalse(), nil
	}

	path, err := s.path()
	if err != nil {
		return nil, err
	}

	switch s.Op {
	case "in", "not in":
		if len(s.Values) == 0 {
			if s.Op == "in" {
				return ExpFalse(), nil
			}
			return ExpTrue(), nil
		}
		t := In
		if s.Op == "not in" {
			t = NotIn
		}
		return binary(t, path, NewList(s.Values)), nil

	case "between", "not between":
		if len(s.Values) != 2 {
			return nil, fmt.Errorf("%w: %q needs two values", ErrInvalidSpec, s.Op)
		}
		t := Between
		if s.Op == "not between" {
			t = NotBetween
		}
		return newNode(t, path, s.Values[0], s.Values[1]), nil

	case "match_all":
		if path.Type() != ObjPath {
			return nil, fmt.Errorf("%w: match_all needs an object path", ErrInvalidSpec)
		}
		return MatchAllExp(path.Path(), s.Values...), nil
	}

	t, ok := comparisonOps[s.Op]
	if !ok {
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidSpec, s.Op)
	}
	e := binary(t, path, s.Value)
	if s.Escape != "" {
		if !t.IsPatternMatch() {
			return nil, fmt.Errorf("%w: escape is only valid for like operators", ErrInvalidSpec)
		}
		c, size := utf8.DecodeRuneInString(s.Escape)
		if size != len(s.Escape) {
			return nil, fmt.Errorf("%w: escape must be a single character", ErrInvalidSpec)
		}
		e.escape = c
	}
	return e, nil
}

func (s Spec) path() (*Expression, error) {
	switch {
	case s.Path != "" && s.DbPath != "":
		return nil, fmt.Errorf("%w: %q has both path and db_path", ErrInvalidSpec, s.Op)
	case s.Path != "":
		return NewObjPath(s.Path), nil
	case s.DbPath != "":
		return NewDbPath(s.DbPath), nil
	}
	return nil, fmt.Errorf("%w: %q needs path or db_path", ErrInvalidSpec, s.Op)
}

func buildAll(specs []Spec) ([]*Expression, error) {
	out := make([]*Expression, 0, len(specs))
	for i, s := range specs {
		e, err := s.Build()
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}
