package batch

import (
	"fmt"
	"sort"

	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
)

// Row is one row of a batch.
type Row struct {
	// ID is the object the row was built from. Inserts record generated
	// keys on it.
	ID *object.ObjectID

	// Values are the written column values of an insert or update.
	Values map[string]any

	// Qualifier holds the WHERE column values of an update or delete.
	Qualifier map[string]any
}

// Query is a batch of rows of one table.
type Query interface {
	DbEntity() *schema.DbEntity
	Rows() []Row
}

// InsertBatchQuery inserts rows into one table.
type InsertBatchQuery struct {
	entity *schema.DbEntity
	rows   []Row
}

// NewInsertBatchQuery returns an empty insert batch for entity.
func NewInsertBatchQuery(entity *schema.DbEntity) *InsertBatchQuery {
	return &InsertBatchQuery{entity: entity}
}

func (q *InsertBatchQuery) DbEntity() *schema.DbEntity { return q.entity }

func (q *InsertBatchQuery) Rows() []Row { return q.rows }

// DbAttributes returns the columns of the table in declaration order. The
// builder decides which of them the statement writes.
func (q *InsertBatchQuery) DbAttributes() []*schema.DbAttribute { return q.entity.Attributes() }

// AddRow appends a row. Missing columns insert NULL.
func (q *InsertBatchQuery) AddRow(values map[string]any, id *object.ObjectID) {
	q.rows = append(q.rows, Row{ID: id, Values: values})
}

// qualified is the part update and delete batches share: the WHERE
// columns and which of them compare with NULL.
type qualified struct {
	entity     *schema.DbEntity
	qualifiers []*schema.DbAttribute
	nulls      map[string]bool
	rows       []Row
}

func newQualified(entity *schema.DbEntity, qualifiers []*schema.DbAttribute, nullQualifierNames []string) qualified {
	nulls := make(map[string]bool, len(nullQualifierNames))
	for _, name := range nullQualifierNames {
		nulls[name] = true
	}
	return qualified{entity: entity, qualifiers: qualifiers, nulls: nulls}
}

func (q *qualified) DbEntity() *schema.DbEntity { return q.entity }

func (q *qualified) Rows() []Row { return q.rows }

// QualifierAttributes returns the WHERE columns in clause order.
func (q *qualified) QualifierAttributes() []*schema.DbAttribute { return q.qualifiers }

// IsNull reports whether attr is compared with NULL in every row.
func (q *qualified) IsNull(attr *schema.DbAttribute) bool { return q.nulls[attr.Name] }

func (q *qualified) checkNullPattern(qualifier map[string]any) error {
	for _, attr := range q.qualifiers {
		if (qualifier[attr.Name] == nil) != q.nulls[attr.Name] {
			return fmt.Errorf("%w: %s.%s", ErrNullPatternMismatch, q.entity.Name, attr.Name)
		}
	}
	return nil
}

// DeleteBatchQuery deletes rows of one table by qualifier.
type DeleteBatchQuery struct {
	qualified
}

// NewDeleteBatchQuery returns an empty delete batch. nullQualifierNames
// are the qualifier columns every row compares with NULL.
func NewDeleteBatchQuery(entity *schema.DbEntity, qualifiers []*schema.DbAttribute, nullQualifierNames []string) *DeleteBatchQuery {
	return &DeleteBatchQuery{qualified: newQualified(entity, qualifiers, nullQualifierNames)}
}

// AddRow appends a row identified by qualifier.
func (q *DeleteBatchQuery) AddRow(qualifier map[string]any, id *object.ObjectID) error {
	if err := q.checkNullPattern(qualifier); err != nil {
		return err
	}
	q.rows = append(q.rows, Row{ID: id, Qualifier: qualifier})
	return nil
}

// UpdateBatchQuery updates the same columns of several rows of one table.
type UpdateBatchQuery struct {
	qualified
	updated []*schema.DbAttribute
}

// NewUpdateBatchQuery returns an empty update batch writing updated.
func NewUpdateBatchQuery(entity *schema.DbEntity, qualifiers, updated []*schema.DbAttribute, nullQualifierNames []string) *UpdateBatchQuery {
	return &UpdateBatchQuery{
		qualified: newQualified(entity, qualifiers, nullQualifierNames),
		updated:   updated,
	}
}

// UpdatedAttributes returns the SET columns in clause order.
func (q *UpdateBatchQuery) UpdatedAttributes() []*schema.DbAttribute { return q.updated }

// AddRow appends a row identified by qualifier.
func (q *UpdateBatchQuery) AddRow(qualifier, values map[string]any, id *object.ObjectID) error {
	if err := q.checkNullPattern(qualifier); err != nil {
		return err
	}
	q.rows = append(q.rows, Row{ID: id, Values: values, Qualifier: qualifier})
	return nil
}

// NullQualifierNames returns the names of the attrs whose value in
// qualifier is NULL, sorted. Rows with equal results can share a batch.
func NullQualifierNames(attrs []*schema.DbAttribute, qualifier map[string]any) []string {
	var names []string
	for _, attr := range attrs {
		if qualifier[attr.Name] == nil {
			names = append(names, attr.Name)
		}
	}
	sort.Strings(names)
	return names
}
