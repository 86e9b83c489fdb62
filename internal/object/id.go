package object

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IDValue is one primary key column of an ObjectID.
type IDValue struct {
	Column string
	Value  any
}

// ObjectID identifies a persistent object. It is immutable except for the
// replacement values attached during commit.
type ObjectID struct {
	entity string
	values []IDValue
	temp   uuid.UUID

	replacement map[string]any
}

// NewObjectID returns a permanent id. Column order is kept.
func NewObjectID(entity string, values ...IDValue) *ObjectID {
	return &ObjectID{entity: entity, values: append([]IDValue(nil), values...)}
}

// NewSingleObjectID returns a permanent id with one key column.
func NewSingleObjectID(entity, column string, value any) *ObjectID {
	return NewObjectID(entity, IDValue{Column: column, Value: value})
}

// NewTemporaryID returns a fresh temporary id for entity.
func NewTemporaryID(entity string) *ObjectID {
	return &ObjectID{entity: entity, temp: uuid.Must(uuid.NewV7())}
}

// EntityName returns the object entity name.
func (id *ObjectID) EntityName() string { return id.entity }

// IsTemporary reports whether the id was never backed by a database key.
func (id *ObjectID) IsTemporary() bool { return id.temp != uuid.Nil }

// Values returns the key columns in order. Temporary ids have none.
func (id *ObjectID) Values() []IDValue { return append([]IDValue(nil), id.values...) }

// Snapshot returns the key as a column → value map.
func (id *ObjectID) Snapshot() map[string]any {
	out := make(map[string]any, len(id.values))
	for _, v := range id.values {
		out[v.Column] = v.Value
	}
	return out
}

// Value returns the value of one key column.
func (id *ObjectID) Value(column string) (any, bool) {
	for _, v := range id.values {
		if v.Column == column {
			return v.Value, true
		}
	}
	return nil, false
}

// SingleValue returns the only key value. It fails for temporary and
// compound ids.
func (id *ObjectID) SingleValue() (any, error) {
	if id.IsTemporary() {
		return nil, fmt.Errorf("%w: %s", ErrTemporaryID, id)
	}
	if len(id.values) != 1 {
		return nil, fmt.Errorf("%w: %s has %d key columns", ErrCompoundID, id, len(id.values))
	}
	return id.values[0].Value, nil
}

// SetReplacementValue records the permanent value of a key column of a
// temporary id.
func (id *ObjectID) SetReplacementValue(column string, value any) {
	if id.replacement == nil {
		id.replacement = make(map[string]any)
	}
	id.replacement[column] = value
}

// ReplacementValues returns the recorded permanent key values.
func (id *ObjectID) ReplacementValues() map[string]any { return id.replacement }

// HasReplacement reports whether replacement values were recorded.
func (id *ObjectID) HasReplacement() bool { return len(id.replacement) > 0 }

// ReplacementID builds the permanent id from the replacement values, in
// the given column order.
func (id *ObjectID) ReplacementID(columns []string) (*ObjectID, error) {
	values := make([]IDValue, 0, len(columns))
	for _, c := range columns {
		v, ok := id.replacement[c]
		if !ok {
			return nil, fmt.Errorf("no replacement value for %s.%s", id.entity, c)
		}
		values = append(values, IDValue{Column: c, Value: v})
	}
	return NewObjectID(id.entity, values...), nil
}

// Equal reports structural equality.
func (id *ObjectID) Equal(other *ObjectID) bool {
	if id == nil || other == nil {
		return id == other
	}
	return id.Key() == other.Key()
}

// Key returns the canonical form of the id. Integer kinds are widened to
// int64 so that ids read from different drivers compare equal.
func (id *ObjectID) Key() string {
	var sb strings.Builder
	sb.WriteString(id.entity)
	if id.IsTemporary() {
		sb.WriteString(":temp:")
		sb.WriteString(id.temp.String())
		return sb.String()
	}
	for i, v := range id.values {
		if i == 0 {
			sb.WriteByte(':')
		} else {
			sb.WriteByte(',')
		}
		sb.WriteString(v.Column)
		sb.WriteByte('=')
		writeKeyValue(&sb, v.Value)
	}
	return sb.String()
}

func (id *ObjectID) String() string {
	if id == nil {
		return "<nil>"
	}
	return "<ObjectID:" + id.Key() + ">"
}

func writeKeyValue(sb *strings.Builder, v any) {
	if v == nil {
		sb.WriteString("null")
		return
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sb.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.String:
		sb.WriteString(strconv.Quote(rv.String()))
	case reflect.Slice:
		if b, ok := v.([]byte); ok {
			sb.WriteString(strconv.Quote(string(b)))
			return
		}
		fmt.Fprintf(sb, "%v", v)
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}
