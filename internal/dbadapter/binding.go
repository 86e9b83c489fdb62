package dbadapter

import (
	"fmt"

	"github.com/roach88/objgraph/internal/schema"
)

// ParameterBinding is one positional statement parameter.
type ParameterBinding struct {
	Value any
	Type  schema.SQLType
	Scale int

	// Attribute is the column the value is compared with or written to. It
	// is nil when the type could not be derived.
	Attribute *schema.DbAttribute
}

// NewBinding returns a binding typed after attr. attr may be nil.
func NewBinding(value any, attr *schema.DbAttribute) ParameterBinding {
	b := ParameterBinding{Value: value, Attribute: attr}
	if attr != nil {
		b.Type, b.Scale = attr.Type, attr.Scale
	}
	return b
}

func (b ParameterBinding) String() string {
	if b.Attribute != nil {
		return fmt.Sprintf("%s:%v", b.Attribute.Name, b.Value)
	}
	return fmt.Sprintf("%v", b.Value)
}

// Binder collects driver arguments by 1-based position.
type Binder struct {
	args []any
}

// Bind sets the argument at position index.
func (b *Binder) Bind(index int, value any) {
	for len(b.args) < index {
		b.args = append(b.args, nil)
	}
	b.args[index-1] = value
}

// Args returns the arguments in position order.
func (b *Binder) Args() []any { return b.args }

// Reset clears the bound arguments.
func (b *Binder) Reset() { b.args = b.args[:0] }

// BindAll binds params in order through adapter.
func BindAll(adapter DbAdapter, params []ParameterBinding) ([]any, error) {
	var b Binder
	for i, p := range params {
		if err := adapter.BindParameter(&b, p.Value, i+1, p.Type, p.Scale); err != nil {
			return nil, fmt.Errorf("bind parameter %d: %w", i+1, err)
		}
	}
	return b.Args(), nil
}
