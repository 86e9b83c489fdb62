package exp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder logs every callback in order.
type recorder struct {
	events []string
	failOn string
}

func (r *recorder) record(ev string) error {
	r.events = append(r.events, ev)
	if ev == r.failOn {
		return errors.New("stop")
	}
	return nil
}

func (r *recorder) StartNode(node, parent *Expression) error {
	return r.record(fmt.Sprintf("start %s parent=%v", node.Type(), parent != nil))
}

func (r *recorder) FinishedChild(node *Expression, i int, more bool) error {
	return r.record(fmt.Sprintf("child %s %d %v", node.Type(), i, more))
}

func (r *recorder) EndNode(node, parent *Expression) error {
	return r.record(fmt.Sprintf("end %s", node.Type()))
}

func (r *recorder) ObjectNode(leaf any, parent *Expression) error {
	return r.record(fmt.Sprintf("leaf %v in %s", leaf, parent.Type()))
}

func TestTraverse_Order(t *testing.T) {
	e := MatchExp("name", "Foo").AndExp(MatchExp("age", nil))

	r := &recorder{}
	require.NoError(t, e.Traverse(r))

	assert.Equal(t, []string{
		"start AND parent=false",
		"start EQUAL_TO parent=true",
		"start OBJ_PATH parent=true",
		"leaf name in OBJ_PATH",
		"child OBJ_PATH 0 false",
		"end OBJ_PATH",
		"child EQUAL_TO 0 true",
		"leaf Foo in EQUAL_TO",
		"child EQUAL_TO 1 false",
		"end EQUAL_TO",
		"child AND 0 true",
		"start EQUAL_TO parent=true",
		"start OBJ_PATH parent=true",
		"leaf age in OBJ_PATH",
		"child OBJ_PATH 0 false",
		"end OBJ_PATH",
		"child EQUAL_TO 0 true",
		"leaf <nil> in EQUAL_TO",
		"child EQUAL_TO 1 false",
		"end EQUAL_TO",
		"child AND 1 false",
		"end AND",
	}, r.events)
}

func TestTraverse_TypedNilIsNullLeaf(t *testing.T) {
	e := newNode(EqualTo, NewObjPath("a"), (*Expression)(nil))
	r := &recorder{}
	require.NoError(t, e.Traverse(r))
	assert.Contains(t, r.events, "leaf <nil> in EQUAL_TO")
}

func TestTraverse_StopsOnError(t *testing.T) {
	e := MatchExp("a", 1).AndExp(MatchExp("b", 2))
	r := &recorder{failOn: "leaf 1 in EQUAL_TO"}

	err := e.Traverse(r)
	require.Error(t, err)
	assert.Equal(t, "leaf 1 in EQUAL_TO", r.events[len(r.events)-1])
	assert.NotContains(t, r.events, "end AND")
}

func TestTraverse_ListLeaf(t *testing.T) {
	e := InExp("id", 1, 2)
	r := &recorder{}
	require.NoError(t, e.Traverse(r))
	assert.Contains(t, r.events, "leaf [1 2] in LIST")
}
