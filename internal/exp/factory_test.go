package exp

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpressionOfType_Valid(t *testing.T) {
	for typ := range typeTable {
		e, err := ExpressionOfType(typ)
		require.NoError(t, err, typ.String())
		assert.Equal(t, typ, e.Type())
		assert.Zero(t, e.OperandCount())
	}
}

func TestExpressionOfType_Invalid(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
	}{
		{"negative", Type(-1)},
		{"out of range", typeCount},
		{"far out of range", Type(1000)},
		{"reserved positive", Positive},
		{"reserved all", All},
		{"reserved some", Some},
		{"reserved any", Any},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ExpressionOfType(tt.typ)
			assert.Nil(t, e)
			assert.True(t, errors.Is(err, ErrInvalidExpressionType))
		})
	}
}

func TestJoinExp_EmptyReturnsNil(t *testing.T) {
	for _, typ := range []Type{And, Or} {
		assert.Nil(t, JoinExp(typ, nil))
		assert.Nil(t, JoinExp(typ, []*Expression{}))
		assert.Nil(t, JoinExp(typ, []*Expression{nil, nil}))
	}
}

func TestJoinExp_SingletonIsIdentity(t *testing.T) {
	e := MatchExp("name", "Foo")
	assert.Same(t, e, JoinExp(And, []*Expression{e}))
	assert.Same(t, e, JoinExp(Or, []*Expression{nil, e}))
}

func TestJoinExp_NAry(t *testing.T) {
	a, b, c := MatchExp("a", 1), MatchExp("b", 2), MatchExp("c", 3)
	joined := JoinExp(Or, []*Expression{a, b, c})

	require.Equal(t, Or, joined.Type())
	require.Equal(t, 3, joined.OperandCount())
	assert.Same(t, a, joined.Operand(0))
	assert.Same(t, b, joined.Operand(1))
	assert.Same(t, c, joined.Operand(2))
}

func TestMatchAnyExp_EquivalentToOrOfMatches(t *testing.T) {
	values := []any{"x", "y", "z"}

	var matches []*Expression
	for _, v := range values {
		matches = append(matches, MatchExp("name", v))
	}
	joined := JoinExp(Or, matches)

	assert.Equal(t, `(name = "x") or (name = "y") or (name = "z")`, joined.String())
	for i, v := range values {
		child := joined.Operand(i).(*Expression)
		assert.Equal(t, EqualTo, child.Type())
		assert.Equal(t, v, child.Operand(1))
	}
}

func TestMatchAnyExp_Map(t *testing.T) {
	e := MatchAnyExp(map[string]any{"b": 2, "a": 1}, EqualTo)
	assert.Equal(t, `(a = 1) or (b = 2)`, e.String())

	e = MatchAllDbExp(map[string]any{"ID": 7}, NotEqualTo)
	assert.Equal(t, `db:ID != 7`, e.String())

	assert.Nil(t, MatchAllExpMap(map[string]any{}, EqualTo))
}

func TestInExp_EmptyFolds(t *testing.T) {
	assert.Equal(t, False, InExp("name").Type())
	assert.Equal(t, False, InDbExp("NAME").Type())
	assert.Equal(t, True, NotInExp("name").Type())
	assert.Equal(t, True, NotInDbExp("NAME").Type())
}

func TestInExp_BuildsList(t *testing.T) {
	e := InExp("id", 1, 2, 3)
	require.Equal(t, In, e.Type())
	list := e.Operand(1).(*Expression)
	assert.Equal(t, List, list.Type())
	assert.Equal(t, []any{1, 2, 3}, list.Operand(0))
	assert.Equal(t, `id in (1, 2, 3)`, e.String())
}

func TestBuilders_Types(t *testing.T) {
	tests := []struct {
		name string
		e    *Expression
		typ  Type
		path Type
	}{
		{"match", MatchExp("a", 1), EqualTo, ObjPath},
		{"match db", MatchDbExp("A", 1), EqualTo, DbPath},
		{"no match", NoMatchExp("a", 1), NotEqualTo, ObjPath},
		{"no match db", NoMatchDbExp("A", 1), NotEqualTo, DbPath},
		{"less", LessExp("a", 1), LessThan, ObjPath},
		{"less db", LessDbExp("A", 1), LessThan, DbPath},
		{"less or equal", LessOrEqualExp("a", 1), LessThanEqualTo, ObjPath},
		{"less or equal db", LessOrEqualDbExp("A", 1), LessThanEqualTo, DbPath},
		{"greater", GreaterExp("a", 1), GreaterThan, ObjPath},
		{"greater db", GreaterDbExp("A", 1), GreaterThan, DbPath},
		{"greater or equal", GreaterOrEqualExp("a", 1), GreaterThanEqualTo, ObjPath},
		{"greater or equal db", GreaterOrEqualDbExp("A", 1), GreaterThanEqualTo, DbPath},
		{"between", BetweenExp("a", 1, 2), Between, ObjPath},
		{"between db", BetweenDbExp("A", 1, 2), Between, DbPath},
		{"not between", NotBetweenExp("a", 1, 2), NotBetween, ObjPath},
		{"not between db", NotBetweenDbExp("A", 1, 2), NotBetween, DbPath},
		{"like", LikeExp("a", "x%"), Like, ObjPath},
		{"like db", LikeDbExp("A", "x%"), Like, DbPath},
		{"not like", NotLikeExp("a", "x%"), NotLike, ObjPath},
		{"like ignore case", LikeIgnoreCaseExp("a", "x%"), LikeIgnoreCase, ObjPath},
		{"not like ignore case", NotLikeIgnoreCaseExp("a", "x%"), NotLikeIgnoreCase, ObjPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.e.Type())
			assert.Equal(t, tt.path, tt.e.Operand(0).(*Expression).Type())
			assert.NoError(t, tt.e.Validate())
		})
	}
}

func TestLikeExpEscape(t *testing.T) {
	e := LikeExpEscape("name", "a!%", '!')
	c, ok := e.EscapeChar()
	require.True(t, ok)
	assert.Equal(t, '!', c)

	_, ok = LikeExp("name", "a%").EscapeChar()
	assert.False(t, ok)

	for _, e := range []*Expression{
		NotLikeExpEscape("n", "x", '#'),
		LikeIgnoreCaseExpEscape("n", "x", '#'),
		NotLikeIgnoreCaseExpEscape("n", "x", '#'),
	} {
		c, ok := e.EscapeChar()
		assert.True(t, ok)
		assert.Equal(t, '#', c)
	}
}

func TestMatchAllExp_Empty(t *testing.T) {
	assert.Equal(t, True, MatchAllExp("paintings|title").Type())
}

func TestMatchAllExp_NoSplit(t *testing.T) {
	e := MatchAllExp("name", "A", "B")
	assert.Equal(t, `(name = "A") and (name = "B")`, e.String())
	assert.Empty(t, e.CollectAliases())

	single := MatchAllExp("name", "A")
	assert.Equal(t, EqualTo, single.Type())
}

func TestMatchAllExp_SplitDistinctAliases(t *testing.T) {
	e := MatchAllExp("paintings|title", "A", "B")
	require.Equal(t, And, e.Type())
	require.Equal(t, 2, e.OperandCount())

	var paths []string
	for i := 0; i < 2; i++ {
		eq := e.Operand(i).(*Expression)
		require.Equal(t, EqualTo, eq.Type())
		p := eq.Operand(0).(*Expression)
		paths = append(paths, p.Path())

		aliases := p.PathAliases()
		require.Len(t, aliases, 1)
		for alias, rel := range aliases {
			assert.Equal(t, "paintings", rel)
			assert.Equal(t, alias+".title", p.Path())
			assert.True(t, strings.HasPrefix(alias, "split"))
			assert.True(t, strings.HasSuffix(alias, "_"+string(rune('0'+i))))
		}
	}
	assert.NotEqual(t, paths[0], paths[1])
	assert.Equal(t, "A", e.Operand(0).(*Expression).Operand(1))
	assert.Equal(t, "B", e.Operand(1).(*Expression).Operand(1))
}

func TestMatchAllExp_SplitForms(t *testing.T) {
	tests := []struct {
		path         string
		wantRel      string
		wantTemplate string // alias replaced by %
	}{
		{"paintings|title", "paintings", "%.title"},
		{"|paintings.title", "paintings", "%.title"},
		{"artist.paintings|title", "paintings", "artist.%.title"},
		{"paintings|gallery.name", "paintings", "%.gallery.name"},
		{"paintings|", "paintings", "%"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e := MatchAllExp(tt.path, 1)
			p := e.Operand(0).(*Expression)
			aliases := p.PathAliases()
			require.Len(t, aliases, 1)
			for alias, rel := range aliases {
				assert.Equal(t, tt.wantRel, rel)
				assert.Equal(t, strings.Replace(tt.wantTemplate, "%", alias, 1), p.Path())
			}
		})
	}
}

func TestMatchAllExp_AliasesUniqueAcrossCalls(t *testing.T) {
	const goroutines = 16
	seen := make(chan string, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := MatchAllExp("paintings|title", "x")
			for alias := range e.CollectAliases() {
				seen <- alias
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]bool)
	for alias := range seen {
		assert.False(t, unique[alias], "duplicate alias %s", alias)
		unique[alias] = true
	}
	assert.Len(t, unique, goroutines)
}
