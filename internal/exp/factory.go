package exp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// SplitSeparator marks the relationship segment of a path that MatchAllExp
// must join once per value.
const SplitSeparator = '|'

// autoAliasID feeds split alias names. It is never reset.
var autoAliasID atomic.Int64

func nextAliasID() int64 {
	return autoAliasID.Add(1) - 1
}

// ExpressionOfType returns a new node of type t with no operands.
func ExpressionOfType(t Type) (*Expression, error) {
	if t < 0 || t >= typeCount || !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidExpressionType, int(t))
	}
	return newNode(t), nil
}

// JoinExp folds exps into one node of type t. Nil entries are skipped.
// No expressions yields nil; a single expression is returned unchanged.
func JoinExp(t Type, exps []*Expression) *Expression {
	ops := make([]any, 0, len(exps))
	var last *Expression
	for _, e := range exps {
		if e == nil {
			continue
		}
		ops = append(ops, e)
		last = e
	}
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return last
	}
	return newNode(t, ops...)
}

// AndOf joins exps with AND.
func AndOf(exps ...*Expression) *Expression { return JoinExp(And, exps) }

// OrOf joins exps with OR.
func OrOf(exps ...*Expression) *Expression { return JoinExp(Or, exps) }

// ExpTrue returns a constant TRUE node.
func ExpTrue() *Expression { return newNode(True) }

// ExpFalse returns a constant FALSE node.
func ExpFalse() *Expression { return newNode(False) }

func binary(t Type, path *Expression, value any) *Expression {
	return newNode(t, path, value)
}

// MatchExp returns path = value. A nil value renders as IS NULL.
func MatchExp(path string, value any) *Expression {
	return binary(EqualTo, NewObjPath(path), value)
}

// MatchDbExp returns db:path = value.
func MatchDbExp(path string, value any) *Expression {
	return binary(EqualTo, NewDbPath(path), value)
}

// NoMatchExp returns path <> value.
func NoMatchExp(path string, value any) *Expression {
	return binary(NotEqualTo, NewObjPath(path), value)
}

// NoMatchDbExp returns db:path <> value.
func NoMatchDbExp(path string, value any) *Expression {
	return binary(NotEqualTo, NewDbPath(path), value)
}

func LessExp(path string, value any) *Expression {
	return binary(LessThan, NewObjPath(path), value)
}

func LessDbExp(path string, value any) *Expression {
	return binary(LessThan, NewDbPath(path), value)
}

func LessOrEqualExp(path string, value any) *Expression {
	return binary(LessThanEqualTo, NewObjPath(path), value)
}

func LessOrEqualDbExp(path string, value any) *Expression {
	return binary(LessThanEqualTo, NewDbPath(path), value)
}

func GreaterExp(path string, value any) *Expression {
	return binary(GreaterThan, NewObjPath(path), value)
}

func GreaterDbExp(path string, value any) *Expression {
	return binary(GreaterThan, NewDbPath(path), value)
}

func GreaterOrEqualExp(path string, value any) *Expression {
	return binary(GreaterThanEqualTo, NewObjPath(path), value)
}

func GreaterOrEqualDbExp(path string, value any) *Expression {
	return binary(GreaterThanEqualTo, NewDbPath(path), value)
}

// InExp returns path IN (values). No values folds to FALSE.
func InExp(path string, values ...any) *Expression {
	if len(values) == 0 {
		return ExpFalse()
	}
	return binary(In, NewObjPath(path), NewList(values))
}

// InDbExp returns db:path IN (values). No values folds to FALSE.
func InDbExp(path string, values ...any) *Expression {
	if len(values) == 0 {
		return ExpFalse()
	}
	return binary(In, NewDbPath(path), NewList(values))
}

// NotInExp returns path NOT IN (values). No values folds to TRUE.
func NotInExp(path string, values ...any) *Expression {
	if len(values) == 0 {
		return ExpTrue()
	}
	return binary(NotIn, NewObjPath(path), NewList(values))
}

// NotInDbExp returns db:path NOT IN (values). No values folds to TRUE.
func NotInDbExp(path string, values ...any) *Expression {
	if len(values) == 0 {
		return ExpTrue()
	}
	return binary(NotIn, NewDbPath(path), NewList(values))
}

func BetweenExp(path string, lower, upper any) *Expression {
	return newNode(Between, NewObjPath(path), lower, upper)
}

func BetweenDbExp(path string, lower, upper any) *Expression {
	return newNode(Between, NewDbPath(path), lower, upper)
}

func NotBetweenExp(path string, lower, upper any) *Expression {
	return newNode(NotBetween, NewObjPath(path), lower, upper)
}

func NotBetweenDbExp(path string, lower, upper any) *Expression {
	return newNode(NotBetween, NewDbPath(path), lower, upper)
}

func pattern(t Type, path *Expression, value any, escape rune) *Expression {
	e := binary(t, path, value)
	e.escape = escape
	return e
}

func LikeExp(path string, value any) *Expression {
	return pattern(Like, NewObjPath(path), value, 0)
}

// LikeExpEscape is LikeExp with an escape character for the pattern.
func LikeExpEscape(path string, value any, escape rune) *Expression {
	return pattern(Like, NewObjPath(path), value, escape)
}

func LikeDbExp(path string, value any) *Expression {
	return pattern(Like, NewDbPath(path), value, 0)
}

func NotLikeExp(path string, value any) *Expression {
	return pattern(NotLike, NewObjPath(path), value, 0)
}

func NotLikeExpEscape(path string, value any, escape rune) *Expression {
	return pattern(NotLike, NewObjPath(path), value, escape)
}

func LikeIgnoreCaseExp(path string, value any) *Expression {
	return pattern(LikeIgnoreCase, NewObjPath(path), value, 0)
}

func LikeIgnoreCaseExpEscape(path string, value any, escape rune) *Expression {
	return pattern(LikeIgnoreCase, NewObjPath(path), value, escape)
}

func NotLikeIgnoreCaseExp(path string, value any) *Expression {
	return pattern(NotLikeIgnoreCase, NewObjPath(path), value, 0)
}

func NotLikeIgnoreCaseExpEscape(path string, value any, escape rune) *Expression {
	return pattern(NotLikeIgnoreCase, NewObjPath(path), value, escape)
}

// MatchAnyExp ORs together one pairType comparison per map entry, in key
// order.
func MatchAnyExp(m map[string]any, pairType Type) *Expression {
	return JoinExp(Or, pairs(m, pairType, NewObjPath))
}

// MatchAllExpMap ANDs together one pairType comparison per map entry, in key
// order.
func MatchAllExpMap(m map[string]any, pairType Type) *Expression {
	return JoinExp(And, pairs(m, pairType, NewObjPath))
}

// MatchAnyDbExp is MatchAnyExp over db paths.
func MatchAnyDbExp(m map[string]any, pairType Type) *Expression {
	return JoinExp(Or, pairs(m, pairType, NewDbPath))
}

// MatchAllDbExp is MatchAllExpMap over db paths.
func MatchAllDbExp(m map[string]any, pairType Type) *Expression {
	return JoinExp(And, pairs(m, pairType, NewDbPath))
}

func pairs(m map[string]any, pairType Type, mkPath func(string) *Expression) []*Expression {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exps := make([]*Expression, 0, len(keys))
	for _, k := range keys {
		exps = append(exps, binary(pairType, mkPath(k), m[k]))
	}
	return exps
}

// MatchAllExp ANDs path = v for every value. No values folds to TRUE.
//
// If path contains SplitSeparator, the relationship segment it marks is
// joined separately for every value. The separator follows the segment it
// splits ("paintings|title"); a leading separator splits the first segment
// ("|paintings.title"). Every value gets the alias split<N>_<i>, where N is
// unique per call.
func MatchAllExp(path string, values ...any) *Expression {
	if len(values) == 0 {
		return ExpTrue()
	}

	matches := make([]*Expression, 0, len(values))
	before, chunk, after, ok := splitPath(path)
	if !ok {
		for _, v := range values {
			matches = append(matches, MatchExp(path, v))
		}
		return JoinExp(And, matches)
	}

	aliasBase := "split" + strconv.FormatInt(nextAliasID(), 10) + "_"
	for i, v := range values {
		alias := aliasBase + strconv.Itoa(i)
		p := NewObjPath(before + alias + after)
		p.aliases = map[string]string{alias: chunk}
		matches = append(matches, binary(EqualTo, p, v))
	}
	return JoinExp(And, matches)
}

// splitPath breaks path around the segment marked by SplitSeparator.
// before keeps its trailing dot and after its leading dot.
func splitPath(path string) (before, chunk, after string, ok bool) {
	split := strings.IndexRune(path, SplitSeparator)
	if split < 0 {
		return "", "", "", false
	}

	if split == 0 {
		rest := path[1:]
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			chunk, after = rest[:dot], rest[dot:]
		} else {
			chunk = rest
		}
	} else {
		head, tail := path[:split], path[split+1:]
		if dot := strings.LastIndexByte(head, '.'); dot >= 0 {
			before, chunk = head[:dot+1], head[dot+1:]
		} else {
			chunk = head
		}
		if tail != "" {
			after = "." + tail
		}
	}
	if chunk == "" {
		return "", "", "", false
	}
	return before, chunk, after, true
}
