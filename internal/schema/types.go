package schema

import (
	"fmt"
	"strings"
)

// SQLType is the generic column type of a DbAttribute. Adapters map it to
// their native type names.
type SQLType int

const (
	TypeUnknown SQLType = iota
	TypeInteger
	TypeBigInt
	TypeSmallInt
	TypeBoolean
	TypeDouble
	TypeDecimal
	TypeChar
	TypeVarchar
	TypeClob
	TypeDate
	TypeTime
	TypeTimestamp
	TypeBlob
)

var sqlTypeNames = map[SQLType]string{
	TypeUnknown:   "UNKNOWN",
	TypeInteger:   "INTEGER",
	TypeBigInt:    "BIGINT",
	TypeSmallInt:  "SMALLINT",
	TypeBoolean:   "BOOLEAN",
	TypeDouble:    "DOUBLE",
	TypeDecimal:   "DECIMAL",
	TypeChar:      "CHAR",
	TypeVarchar:   "VARCHAR",
	TypeClob:      "CLOB",
	TypeDate:      "DATE",
	TypeTime:      "TIME",
	TypeTimestamp: "TIMESTAMP",
	TypeBlob:      "BLOB",
}

func (t SQLType) String() string {
	if name, ok := sqlTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SQLType(%d)", int(t))
}

// ParseSQLType returns the SQLType for a case-insensitive type name.
func ParseSQLType(name string) (SQLType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, n := range sqlTypeNames {
		if n == upper {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown SQL type %q", name)
}

// IsNumeric reports whether values of t are numbers.
func (t SQLType) IsNumeric() bool {
	switch t {
	case TypeInteger, TypeBigInt, TypeSmallInt, TypeDouble, TypeDecimal:
		return true
	}
	return false
}

// IsCharacter reports whether values of t are strings.
func (t SQLType) IsCharacter() bool {
	switch t {
	case TypeChar, TypeVarchar, TypeClob:
		return true
	}
	return false
}

// JoinType selects inner or left outer joins for a path component.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeftOuter
)

func (j JoinType) String() string {
	if j == JoinLeftOuter {
		return "LEFT JOIN"
	}
	return "JOIN"
}

// OuterJoinIndicator suffixes a path component that must be outer-joined.
const OuterJoinIndicator = "+"
