package exp

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Expression is a node in a qualifier tree.
//
// The operand slice is set at construction. Only the factory and alias
// rewriting call SetOperand afterwards.
type Expression struct {
	typ      Type
	operands []any

	// escape is the LIKE escape character; zero means none.
	escape rune

	// aliases maps split alias → relationship name for path nodes.
	aliases map[string]string
}

func newNode(t Type, operands ...any) *Expression {
	return &Expression{typ: t, operands: operands}
}

// NewObjPath returns an OBJ_PATH node for a dot-separated object path.
func NewObjPath(path string) *Expression {
	return newNode(ObjPath, path)
}

// NewDbPath returns a DB_PATH node for a dot-separated db path.
func NewDbPath(path string) *Expression {
	return newNode(DbPath, path)
}

// NewList returns a LIST node holding values.
func NewList(values []any) *Expression {
	return newNode(List, values)
}

// Type returns the operator tag.
func (e *Expression) Type() Type { return e.typ }

// OperandCount returns the number of operands.
func (e *Expression) OperandCount() int { return len(e.operands) }

// Operand returns operand i, or nil if i is out of range.
func (e *Expression) Operand(i int) any {
	if i < 0 || i >= len(e.operands) {
		return nil
	}
	return e.operands[i]
}

// SetOperand sets operand i, growing the operand slice if needed.
func (e *Expression) SetOperand(i int, value any) {
	for len(e.operands) <= i {
		e.operands = append(e.operands, nil)
	}
	e.operands[i] = value
}

// EscapeChar returns the LIKE escape character and whether one is set.
func (e *Expression) EscapeChar() (rune, bool) {
	return e.escape, e.escape != 0
}

// Path returns the path string of an OBJ_PATH or DB_PATH node.
func (e *Expression) Path() string {
	if !e.typ.IsPath() {
		return ""
	}
	s, _ := e.Operand(0).(string)
	return s
}

// PathAliases returns the alias → relationship map of a path node.
// The returned map must not be modified.
func (e *Expression) PathAliases() map[string]string {
	return e.aliases
}

// SetPathAliases replaces the alias map of a path node.
func (e *Expression) SetPathAliases(aliases map[string]string) {
	e.aliases = aliases
}

// Validate checks operand arity for e and every sub-expression.
func (e *Expression) Validate() error {
	info, ok := typeTable[e.typ]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidExpressionType, int(e.typ))
	}
	n := len(e.operands)
	if n < info.minArity || (info.maxArity != unbounded && n > info.maxArity) {
		return fmt.Errorf("%w: %s has %d operands", ErrInvalidArity, info.name, n)
	}
	if e.typ.IsPath() {
		if _, ok := e.operands[0].(string); !ok {
			return fmt.Errorf("%w: %s operand is %T, want string", ErrInvalidArity, info.name, e.operands[0])
		}
	}
	for _, op := range e.operands {
		if child, ok := op.(*Expression); ok && child != nil {
			if err := child.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// AndExp returns e AND other. A nil other returns e unchanged.
// If e is already an AND node the result is a new AND with other appended.
func (e *Expression) AndExp(other *Expression) *Expression {
	return e.joinWith(And, other)
}

// OrExp returns e OR other. A nil other returns e unchanged.
func (e *Expression) OrExp(other *Expression) *Expression {
	return e.joinWith(Or, other)
}

// NotExp returns NOT e.
func (e *Expression) NotExp() *Expression {
	return newNode(Not, e)
}

func (e *Expression) joinWith(t Type, other *Expression) *Expression {
	if other == nil {
		return e
	}
	if e.typ == t {
		ops := make([]any, 0, len(e.operands)+1)
		ops = append(ops, e.operands...)
		return newNode(t, append(ops, other)...)
	}
	return newNode(t, e, other)
}

// DeepCopy returns an independent copy of the tree.
// Literal values are shared; LIST slices are copied.
func (e *Expression) DeepCopy() *Expression {
	return e.Transform(nil)
}

// Transform deep-copies the tree bottom-up, passing every copied node to fn
// and using its return value in place of the node. A nil fn copies only.
func (e *Expression) Transform(fn func(*Expression) *Expression) *Expression {
	if e == nil {
		return nil
	}
	out := &Expression{
		typ:      e.typ,
		operands: make([]any, len(e.operands)),
		escape:   e.escape,
	}
	if e.aliases != nil {
		out.aliases = maps.Clone(e.aliases)
	}
	for i, op := range e.operands {
		switch v := op.(type) {
		case *Expression:
			out.operands[i] = v.Transform(fn)
		case []any:
			out.operands[i] = append([]any(nil), v...)
		default:
			out.operands[i] = op
		}
	}
	if fn != nil {
		return fn(out)
	}
	return out
}

// CollectAliases returns alias → relationship for every path node in the
// tree. A later duplicate alias overwrites an earlier one.
func (e *Expression) CollectAliases() map[string]string {
	aliases := make(map[string]string)
	e.collectAliases(aliases)
	return aliases
}

func (e *Expression) collectAliases(into map[string]string) {
	maps.Copy(into, e.aliases)
	for _, op := range e.operands {
		if child, ok := op.(*Expression); ok && child != nil {
			child.collectAliases(into)
		}
	}
}

// String returns a deterministic textual form, e.g.
// `(name = "Foo") and (age = null)`. Db paths are prefixed with "db:".
func (e *Expression) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

var infixNames = map[Type]string{
	And:                "and",
	Or:                 "or",
	EqualTo:            "=",
	NotEqualTo:         "!=",
	LessThan:           "<",
	GreaterThan:        ">",
	LessThanEqualTo:    "<=",
	GreaterThanEqualTo: ">=",
	In:                 "in",
	NotIn:              "not in",
	Like:               "like",
	NotLike:            "not like",
	LikeIgnoreCase:     "likeIgnoreCase",
	NotLikeIgnoreCase:  "not likeIgnoreCase",
	Add:                "+",
	Subtract:           "-",
	Multiply:           "*",
	Divide:             "/",
	BitwiseAnd:         "&",
	BitwiseOr:          "|",
	BitwiseXor:         "^",
	BitwiseLeftShift:   "<<",
	BitwiseRightShift:  ">>",
}

func (e *Expression) write(sb *strings.Builder) {
	switch e.typ {
	case ObjPath:
		sb.WriteString(e.Path())
	case DbPath:
		sb.WriteString("db:")
		sb.WriteString(e.Path())
	case List:
		writeList(sb, e.Operand(0))
	case True:
		sb.WriteString("true")
	case False:
		sb.WriteString("false")
	case Not:
		sb.WriteString("not ")
		writeOperand(sb, e.Operand(0))
	case Negative:
		sb.WriteString("-")
		writeOperand(sb, e.Operand(0))
	case BitwiseNot:
		sb.WriteString("~")
		writeOperand(sb, e.Operand(0))
	case Between, NotBetween:
		writeOperand(sb, e.Operand(0))
		if e.typ == NotBetween {
			sb.WriteString(" not")
		}
		sb.WriteString(" between ")
		writeOperand(sb, e.Operand(1))
		sb.WriteString(" and ")
		writeOperand(sb, e.Operand(2))
	default:
		name, ok := infixNames[e.typ]
		if !ok {
			name = e.typ.String()
		}
		for i, op := range e.operands {
			if i > 0 {
				sb.WriteString(" " + name + " ")
			}
			writeOperand(sb, op)
		}
		if c, ok := e.EscapeChar(); ok {
			sb.WriteString(" escape ")
			sb.WriteString(strconv.QuoteRune(c))
		}
	}
}

func writeOperand(sb *strings.Builder, op any) {
	child, ok := op.(*Expression)
	if !ok {
		writeLiteral(sb, op)
		return
	}
	if child == nil {
		sb.WriteString("null")
		return
	}
	if child.typ.IsPath() || child.typ == List || len(child.operands) == 0 {
		child.write(sb)
		return
	}
	sb.WriteString("(")
	child.write(sb)
	sb.WriteString(")")
}

func writeList(sb *strings.Builder, v any) {
	sb.WriteString("(")
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeLiteral(sb, rv.Index(i).Interface())
		}
	} else {
		writeLiteral(sb, v)
	}
	sb.WriteString(")")
}

func writeLiteral(sb *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("null")
	case string:
		sb.WriteString(strconv.Quote(x))
	case fmt.Stringer:
		sb.WriteString(x.String())
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k + ": ")
			writeLiteral(sb, x[k])
		}
		sb.WriteString("}")
	default:
		fmt.Fprintf(sb, "%v", x)
	}
}
