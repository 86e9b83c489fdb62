package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/query"
	"github.com/roach88/objgraph/internal/schema"
	"github.com/roach88/objgraph/internal/translator"
)

// performSelect runs sel and returns data rows or objects registered in oc.
func (d *Domain) performSelect(ctx context.Context, oc object.ObjectContext, sel *query.SelectQuery) ([]any, error) {
	entity, err := d.resolver.LookupObjEntity(sel.EntityName)
	if err != nil {
		return nil, err
	}
	rows, err := d.fetchRows(ctx, sel)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(rows))
	if sel.FetchingDataRows {
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	}

	objects := make([]object.Persistent, len(rows))
	for i, r := range rows {
		o, err := objectFromRow(oc, entity, r, sel.Refreshing)
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", entity.Name, err)
		}
		objects[i] = o
		out[i] = o
	}
	if sel.Prefetch != nil {
		if err := d.prefetch(ctx, oc, objects, sel.Prefetch); err != nil {
			return nil, fmt.Errorf("prefetch %s: %w", entity.Name, err)
		}
	}
	return out, nil
}

// fetchRows translates and runs sel, keying row values by column name.
func (d *Domain) fetchRows(ctx context.Context, sel *query.SelectQuery) ([]object.DataRow, error) {
	stmt, err := translator.NewSelectTranslator(sel, d.adapter, d.resolver, d.translator...).CreateSQL()
	if err != nil {
		return nil, err
	}
	args, err := stmt.Args(d.adapter)
	if err != nil {
		return nil, err
	}
	rows, err := d.store.Query(ctx, d.adapter.Rebind(stmt.SQL), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel.EntityName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []object.DataRow
	for rows.Next() {
		// DISTINCT may append ordering columns past the result columns
		dest := make([]any, len(columns))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", sel.EntityName, err)
		}
		row := make(object.DataRow, len(stmt.ResultColumns))
		for i, attr := range stmt.ResultColumns {
			row[attr.Name] = columnValue(attr, *dest[i].(*any))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sampleRows("fetch", len(out))
	slog.Debug("fetched rows",
		"entity", sel.EntityName,
		"rows", len(out),
	)
	return out, nil
}

// columnValue normalizes driver values. Text arrives as []byte from some
// drivers.
func columnValue(attr *schema.DbAttribute, v any) any {
	if b, ok := v.([]byte); ok && attr.Type != schema.TypeBlob {
		return string(b)
	}
	return v
}

// objectFromRow returns the object of row in oc. A registered object keeps
// its local changes; a COMMITTED one is overwritten only when refreshing.
func objectFromRow(oc object.ObjectContext, root *schema.ObjEntity, row object.DataRow, refreshing bool) (object.Persistent, error) {
	entity := resolveEntity(root, row)
	db := entity.DbEntity()
	if db == nil {
		return nil, fmt.Errorf("%w: %s has no db entity", schema.ErrUnknownEntity, entity.Name)
	}

	pks := db.PrimaryKeys()
	values := make([]object.IDValue, len(pks))
	for i, pk := range pks {
		v := row[pk.Name]
		if v == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingKey, db.Name, pk.Name)
		}
		values[i] = object.IDValue{Column: pk.Name, Value: v}
	}
	id := object.NewObjectID(entity.Name, values...)

	desc := oc.ClassDescriptor(entity.Name)
	if desc == nil {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownEntity, entity.Name)
	}
	graph := oc.GraphManager()
	o := graph.Node(id)
	switch {
	case o == nil:
		created := desc.NewObject()
		created.SetObjectID(id)
		writeAttributes(desc, created, row)
		created.SetPersistenceState(object.Committed)
		created.SetObjectContext(oc)
		graph.RegisterNode(id, created)
		desc.InjectValueHolders(created, true)
		return created, nil
	case o.PersistenceState() == object.Hollow:
		writeAttributes(desc, o, row)
		o.SetPersistenceState(object.Committed)
	case o.PersistenceState() == object.Committed && refreshing:
		writeAttributes(desc, o, row)
	}
	return o, nil
}

func writeAttributes(desc *object.ClassDescriptor, o object.Persistent, row object.DataRow) {
	for _, p := range desc.Properties() {
		if p.Kind() != object.AttributeProperty || p.Attribute().IsFlattened() {
			continue
		}
		if col := p.Attribute().DbAttribute(); col != nil {
			o.WritePropertyDirectly(p.Name(), row[col.Name])
		}
	}
}

// resolveEntity picks the most specific entity of a single-table
// inheritance tree whose qualifier matches row. Only "path = value"
// qualifiers are recognized.
func resolveEntity(root *schema.ObjEntity, row object.DataRow) *schema.ObjEntity {
	if e := matchDescendant(root, row); e != nil {
		return e
	}
	return root
}

func matchDescendant(e *schema.ObjEntity, row object.DataRow) *schema.ObjEntity {
	for _, sub := range e.SubEntities() {
		if deeper := matchDescendant(sub, row); deeper != nil {
			return deeper
		}
		if matchesRow(sub, row) {
			return sub
		}
	}
	return nil
}

func matchesRow(e *schema.ObjEntity, row object.DataRow) bool {
	q := e.Qualifier
	if q == nil || q.Type() != exp.EqualTo || q.OperandCount() != 2 {
		return false
	}
	path, ok := q.Operand(0).(*exp.Expression)
	if !ok {
		return false
	}
	var column string
	switch path.Type() {
	case exp.ObjPath:
		attr := e.Attribute(path.Path())
		if attr == nil || attr.IsFlattened() || attr.DbAttribute() == nil {
			return false
		}
		column = attr.DbAttribute().Name
	case exp.DbPath:
		column = path.Path()
	default:
		return false
	}
	v, ok := row[column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == fmt.Sprint(q.Operand(1))
}

// prefetch resolves the relationships named by the children of node on
// every object, one relationship query per object. Phantom nodes are
// fetched to reach their children but their relationship is left alone.
func (d *Domain) prefetch(ctx context.Context, oc object.ObjectContext, objects []object.Persistent, node *object.PrefetchTreeNode) error {
	for _, child := range node.Children() {
		var next []object.Persistent
		for _, o := range objects {
			targets, err := d.fetchRelationship(ctx, oc, o, child.Name())
			if err != nil {
				return err
			}
			if !child.IsPhantom() {
				install(oc, o, child.Name(), targets)
			}
			next = append(next, targets...)
		}
		if len(child.Children()) > 0 && len(next) > 0 {
			if err := d.prefetch(ctx, oc, dedup(next), child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Domain) fetchRelationship(ctx context.Context, oc object.ObjectContext, o object.Persistent, relationship string) ([]object.Persistent, error) {
	rq := &query.RelationshipQuery{ObjectID: o.ObjectID(), RelationshipName: relationship, Refreshing: true}
	sel, err := rq.ReplacementQuery(d.resolver)
	if err != nil {
		return nil, err
	}
	list, err := d.performSelect(ctx, oc, sel)
	if err != nil {
		return nil, err
	}
	out := make([]object.Persistent, 0, len(list))
	for _, v := range list {
		if p, ok := v.(object.Persistent); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// install stores prefetched targets in the relationship of o. Objects with
// local changes keep their relationship values.
func install(oc object.ObjectContext, o object.Persistent, relationship string, targets []object.Persistent) {
	if o.PersistenceState() != object.Committed {
		return
	}
	desc := oc.ClassDescriptor(o.EntityName())
	if desc == nil {
		return
	}
	p := desc.Property(relationship)
	if p == nil {
		return
	}
	switch p.Kind() {
	case object.ToManyProperty:
		if h := p.ToManyHolder(o); h != nil {
			h.SetObjects(targets)
		}
	case object.ToOneProperty:
		if len(targets) == 0 {
			p.WriteDirectly(o, nil)
		} else {
			p.WriteDirectly(o, targets[0])
		}
	}
}

func dedup(objects []object.Persistent) []object.Persistent {
	seen := make(map[string]bool, len(objects))
	out := objects[:0:0]
	for _, o := range objects {
		key := o.ObjectID().Key()
		if !seen[key] {
			seen[key] = true
			out = append(out, o)
		}
	}
	return out
}
