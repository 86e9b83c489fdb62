package exp

import "fmt"

// Type tags an Expression node with its operator.
type Type int

// Operator tags. Positive, All, Some and Any are reserved tags with no node
// implementation; ExpressionOfType rejects them.
const (
	And Type = iota
	Or
	Not
	EqualTo
	NotEqualTo
	LessThan
	GreaterThan
	LessThanEqualTo
	GreaterThanEqualTo
	Between
	In
	Like
	LikeIgnoreCase
	Add
	Subtract
	Multiply
	Divide
	Negative
	Positive
	All
	Some
	Any
	ObjPath
	DbPath
	List
	NotBetween
	NotIn
	NotLike
	NotLikeIgnoreCase
	True
	False
	BitwiseNot
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	BitwiseLeftShift
	BitwiseRightShift

	typeCount
)

// unbounded marks an n-ary operator.
const unbounded = -1

type typeInfo struct {
	name     string
	minArity int
	maxArity int
}

// typeTable maps every implemented Type to its name and operand arity.
// Reserved tags are absent.
var typeTable = map[Type]typeInfo{
	And:                {"AND", 1, unbounded},
	Or:                 {"OR", 1, unbounded},
	Not:                {"NOT", 1, 1},
	EqualTo:            {"EQUAL_TO", 2, 2},
	NotEqualTo:         {"NOT_EQUAL_TO", 2, 2},
	LessThan:           {"LESS_THAN", 2, 2},
	GreaterThan:        {"GREATER_THAN", 2, 2},
	LessThanEqualTo:    {"LESS_THAN_EQUAL_TO", 2, 2},
	GreaterThanEqualTo: {"GREATER_THAN_EQUAL_TO", 2, 2},
	Between:            {"BETWEEN", 3, 3},
	NotBetween:         {"NOT_BETWEEN", 3, 3},
	In:                 {"IN", 2, 2},
	NotIn:              {"NOT_IN", 2, 2},
	Like:               {"LIKE", 2, 2},
	NotLike:            {"NOT_LIKE", 2, 2},
	LikeIgnoreCase:     {"LIKE_IGNORE_CASE", 2, 2},
	NotLikeIgnoreCase:  {"NOT_LIKE_IGNORE_CASE", 2, 2},
	Add:                {"ADD", 2, unbounded},
	Subtract:           {"SUBTRACT", 2, unbounded},
	Multiply:           {"MULTIPLY", 2, unbounded},
	Divide:             {"DIVIDE", 2, unbounded},
	Negative:           {"NEGATIVE", 1, 1},
	ObjPath:            {"OBJ_PATH", 1, 1},
	DbPath:             {"DB_PATH", 1, 1},
	List:               {"LIST", 1, 1},
	True:               {"TRUE", 0, 0},
	False:              {"FALSE", 0, 0},
	BitwiseNot:         {"BITWISE_NOT", 1, 1},
	BitwiseAnd:         {"BITWISE_AND", 2, 2},
	BitwiseOr:          {"BITWISE_OR", 2, 2},
	BitwiseXor:         {"BITWISE_XOR", 2, 2},
	BitwiseLeftShift:   {"BITWISE_LEFT_SHIFT", 2, 2},
	BitwiseRightShift:  {"BITWISE_RIGHT_SHIFT", 2, 2},
}

// String returns the operator tag name, e.g. "EQUAL_TO".
func (t Type) String() string {
	if info, ok := typeTable[t]; ok {
		return info.name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t maps to an implemented node kind.
func (t Type) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

// IsPath reports whether t is OBJ_PATH or DB_PATH.
func (t Type) IsPath() bool {
	return t == ObjPath || t == DbPath
}

// IsPatternMatch reports whether t is one of the LIKE variants.
func (t Type) IsPatternMatch() bool {
	switch t {
	case Like, NotLike, LikeIgnoreCase, NotLikeIgnoreCase:
		return true
	}
	return false
}

// IsPredicate reports whether t yields a boolean from non-boolean operands
// and binds tighter than AND/OR/NOT in every SQL dialect. BETWEEN is left
// out: its own AND keyword reads as a connective.
func (t Type) IsPredicate() bool {
	switch t {
	case EqualTo, NotEqualTo, LessThan, GreaterThan, LessThanEqualTo, GreaterThanEqualTo,
		In, NotIn, Like, NotLike, LikeIgnoreCase, NotLikeIgnoreCase,
		True, False:
		return true
	}
	return false
}

// IsLogical reports whether t is AND or OR.
func (t Type) IsLogical() bool {
	return t == And || t == Or
}
