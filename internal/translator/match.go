package translator

import (
	"fmt"

	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
)

// ObjectMatchTranslator collects the per-column comparisons a comparison
// with a persistent object expands into.
//
// Keys are column names of the compared object's primary key. For a to-one
// relationship that points at the target's primary key the comparison is
// made on the relationship's own foreign key columns; otherwise the target
// table has to be joined and its key columns are compared.
type ObjectMatchTranslator struct {
	keys       []string
	attributes map[string]*schema.DbAttribute
	values     map[string]any

	operation  string
	expression *exp.Expression

	relationship   *schema.DbRelationship
	joinSplitAlias string
}

// NewObjectMatchTranslator returns an empty match translator.
func NewObjectMatchTranslator() *ObjectMatchTranslator {
	m := &ObjectMatchTranslator{}
	m.Reset()
	return m
}

// Reset clears all state.
func (m *ObjectMatchTranslator) Reset() {
	m.keys = nil
	m.attributes = make(map[string]*schema.DbAttribute)
	m.values = nil
	m.operation = ""
	m.expression = nil
	m.relationship = nil
	m.joinSplitAlias = ""
}

// SetRelationship sets the relationship the object is compared through.
func (m *ObjectMatchTranslator) SetRelationship(rel *schema.DbRelationship, joinSplitAlias string) {
	m.relationship = rel
	m.joinSplitAlias = joinSplitAlias
	m.keys = nil
	m.attributes = make(map[string]*schema.DbAttribute)

	if rel.ToMany || !rel.IsToPK() {
		// match on the target's key
		for _, pk := range rel.TargetEntity().PrimaryKeys() {
			m.keys = append(m.keys, pk.Name)
			m.attributes[pk.Name] = pk
		}
		return
	}
	// match on this side's foreign key, indexed by the key it points at
	for _, j := range rel.Joins() {
		m.keys = append(m.keys, j.TargetName)
		m.attributes[j.TargetName] = j.Source()
	}
}

// SetObjectID sets the compared key.
func (m *ObjectMatchTranslator) SetObjectID(id *object.ObjectID) error {
	if id == nil {
		return ErrTransientObject
	}
	if id.IsTemporary() {
		return fmt.Errorf("%w: %s", object.ErrTemporaryID, id)
	}
	m.values = id.Snapshot()
	return nil
}

// SetDataObject sets the compared key from o. A nil object compares every
// key column with NULL.
func (m *ObjectMatchTranslator) SetDataObject(o object.Persistent) error {
	if o == nil {
		m.values = map[string]any{}
		return nil
	}
	return m.SetObjectID(o.ObjectID())
}

// Keys returns the compared key columns in a stable order: the target's
// key order or the relationship's join order.
func (m *ObjectMatchTranslator) Keys() ([]string, error) {
	if m.relationship == nil {
		return nil, ErrObjectMatchWithoutRelationship
	}
	return m.keys, nil
}

// Attribute returns the column compared for key.
func (m *ObjectMatchTranslator) Attribute(key string) *schema.DbAttribute {
	return m.attributes[key]
}

// Value returns the value compared for key. Missing keys are NULL.
func (m *ObjectMatchTranslator) Value(key string) any {
	return m.values[key]
}

// Operation returns the comparison token, e.g. " = ".
func (m *ObjectMatchTranslator) Operation() string { return m.operation }

func (m *ObjectMatchTranslator) SetOperation(op string) { m.operation = op }

// Expression returns the comparison node being expanded.
func (m *ObjectMatchTranslator) Expression() *exp.Expression { return m.expression }

func (m *ObjectMatchTranslator) SetExpression(e *exp.Expression) { m.expression = e }

func (m *ObjectMatchTranslator) Relationship() *schema.DbRelationship { return m.relationship }

func (m *ObjectMatchTranslator) JoinSplitAlias() string { return m.joinSplitAlias }
