package access

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/objgraph/internal/batch"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
	"github.com/roach88/objgraph/internal/store"
)

// nodeChange is what a flush did to one object.
type nodeChange struct {
	id      *object.ObjectID
	created bool
	deleted bool

	// props are the touched properties in first-touch order; old holds the
	// value each had before, a target id for relationships.
	props []string
	old   map[string]any
}

// changeSet collects the changes of a GraphDiff per object.
type changeSet struct {
	order []*nodeChange
	nodes map[string]*nodeChange
}

var _ object.GraphChangeHandler = (*changeSet)(nil)

func collectChanges(diff object.GraphDiff) *changeSet {
	cs := &changeSet{nodes: make(map[string]*nodeChange)}
	diff.Apply(cs)
	return cs
}

func (cs *changeSet) node(id *object.ObjectID) *nodeChange {
	key := id.Key()
	n, ok := cs.nodes[key]
	if !ok {
		n = &nodeChange{id: id, old: make(map[string]any)}
		cs.nodes[key] = n
		cs.order = append(cs.order, n)
	}
	return n
}

func (n *nodeChange) touch(property string, old any) {
	if _, ok := n.old[property]; ok {
		return
	}
	n.props = append(n.props, property)
	n.old[property] = old
}

func (cs *changeSet) NodeIDChanged(_, _ *object.ObjectID) {}
func (cs *changeSet) NodeCreated(id *object.ObjectID)     { cs.node(id).created = true }
func (cs *changeSet) NodeRemoved(id *object.ObjectID)     { cs.node(id).deleted = true }

func (cs *changeSet) NodePropertyChanged(id *object.ObjectID, property string, oldValue, _ any) {
	cs.node(id).touch(property, oldValue)
}

func (cs *changeSet) ArcCreated(id, _ *object.ObjectID, arc string) {
	cs.node(id).touch(arc, (*object.ObjectID)(nil))
}

func (cs *changeSet) ArcDeleted(id, targetID *object.ObjectID, arc string) {
	cs.node(id).touch(arc, targetID)
}

// pendingRow is a change of one object ready to be written.
type pendingRow struct {
	change *nodeChange
	object object.Persistent
	desc   *object.ClassDescriptor
	table  *schema.DbEntity
}

// commitRun is the state of one commit transaction.
type commitRun struct {
	d     *Domain
	tx    *store.Tx
	reply *object.CompoundDiff

	// replaced maps temporary id keys to the ids that replace them.
	replaced map[string]*object.ObjectID

	inserted, updated, deleted int
}

// commit writes changes in one transaction and returns the id
// replacements of inserted objects.
func (d *Domain) commit(ctx context.Context, oc object.ObjectContext, changes object.GraphDiff) (object.GraphDiff, error) {
	cs := collectChanges(changes)

	inserts := make(map[*schema.DbEntity][]pendingRow)
	deletes := make(map[*schema.DbEntity][]pendingRow)
	var updates []pendingRow
	for _, n := range cs.order {
		if n.created && n.deleted {
			continue
		}
		o := oc.GraphManager().Node(n.id)
		if o == nil {
			slog.Debug("skipping unregistered object", "id", n.id.String())
			continue
		}
		desc := oc.ClassDescriptor(n.id.EntityName())
		if desc == nil {
			return nil, fmt.Errorf("%w: %s", schema.ErrUnknownEntity, n.id.EntityName())
		}
		table := desc.Entity().DbEntity()
		if table == nil {
			return nil, fmt.Errorf("%w: %s has no db entity", schema.ErrUnknownEntity, desc.Entity().Name)
		}
		r := pendingRow{change: n, object: o, desc: desc, table: table}
		switch {
		case n.created:
			inserts[table] = append(inserts[table], r)
		case n.deleted:
			deletes[table] = append(deletes[table], r)
		default:
			updates = append(updates, r)
		}
	}

	run := &commitRun{
		d:        d,
		reply:    &object.CompoundDiff{},
		replaced: make(map[string]*object.ObjectID),
	}
	order := schema.SortByDependency(d.resolver.DbEntities())
	err := d.store.InTx(ctx, func(tx *store.Tx) error {
		run.tx = tx
		for _, table := range order {
			if rows := inserts[table]; len(rows) > 0 {
				if err := run.insert(ctx, table, rows); err != nil {
					return err
				}
			}
		}
		if err := run.update(ctx, updates); err != nil {
			return err
		}
		for _, table := range slices.Backward(order) {
			if rows := deletes[table]; len(rows) > 0 {
				if err := run.delete(ctx, table, rows); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sampleRows("insert", run.inserted)
	sampleRows("update", run.updated)
	sampleRows("delete", run.deleted)
	slog.Debug("committed changes",
		"inserted", run.inserted,
		"updated", run.updated,
		"deleted", run.deleted,
	)
	return run.reply, nil
}

func (r *commitRun) insert(ctx context.Context, table *schema.DbEntity, rows []pendingRow) error {
	q := batch.NewInsertBatchQuery(table)
	generated := make([]*schema.DbAttribute, len(rows))
	for i, row := range rows {
		values, err := r.insertValues(row)
		if err != nil {
			return err
		}
		if generated[i], err = r.assignKeys(ctx, row, values); err != nil {
			return err
		}
		q.AddRow(values, row.change.id)
	}

	builder, err := batch.NewBuilder(q, r.d.adapter)
	if err != nil {
		return err
	}
	sql, err := builder.CreateSQLString()
	if err != nil {
		return err
	}
	sql = r.d.adapter.Rebind(sql)
	for i, row := range q.Rows() {
		args, err := batch.RowArgs(builder, i)
		if err != nil {
			return err
		}
		res, err := r.tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("insert %s: %w", table.Name, err)
		}
		if key := generated[i]; key != nil {
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("insert %s: read generated key: %w", table.Name, err)
			}
			row.Values[key.Name] = id
		}
		if err := r.replaceID(table, row); err != nil {
			return err
		}
		r.inserted++
	}
	return nil
}

// insertValues reads the columns of a new object: its attributes and the
// foreign keys of its to-one relationships.
func (r *commitRun) insertValues(row pendingRow) (map[string]any, error) {
	values := make(map[string]any)
	for _, p := range row.desc.Properties() {
		switch p.Kind() {
		case object.AttributeProperty:
			if p.Attribute().IsFlattened() {
				continue
			}
			if col := p.Attribute().DbAttribute(); col != nil {
				values[col.Name] = p.ReadDirectly(row.object)
			}
		case object.ToOneProperty:
			rel := foreignKey(p)
			if rel == nil {
				continue
			}
			target, ok := p.ReadDirectly(row.object).(object.Persistent)
			if !ok || target == nil {
				continue
			}
			if err := r.foreignKeyValues(rel, target.ObjectID(), values); err != nil {
				return nil, err
			}
		}
	}
	return values, nil
}

// assignKeys fills the primary key columns missing from values. It returns
// the column the database generates, if any.
func (r *commitRun) assignKeys(ctx context.Context, row pendingRow, values map[string]any) (*schema.DbAttribute, error) {
	pks := row.table.PrimaryKeys()
	var generated *schema.DbAttribute
	for _, pk := range pks {
		if pk.Generated && r.d.adapter.SupportsGeneratedKeys() {
			generated = pk
			continue
		}
		if values[pk.Name] != nil {
			continue
		}
		if v, ok := row.change.id.ReplacementValues()[pk.Name]; ok {
			values[pk.Name] = v
			continue
		}
		if pk.Generated || (len(pks) == 1 && pk.Type.IsNumeric()) {
			v, err := r.d.pkGenerator.GeneratePK(ctx, r.tx.Querier(r.d.adapter.Rebind), pk)
			if err != nil {
				return nil, fmt.Errorf("generate key %s.%s: %w", row.table.Name, pk.Name, err)
			}
			values[pk.Name] = v
			continue
		}
		return nil, fmt.Errorf("%w: %s.%s of %s", ErrMissingKey, row.table.Name, pk.Name, row.change.id)
	}
	return generated, nil
}

// replaceID records the permanent id of an inserted row.
func (r *commitRun) replaceID(table *schema.DbEntity, row batch.Row) error {
	id := row.ID
	if !id.IsTemporary() {
		return nil
	}
	pks := table.PrimaryKeys()
	columns := make([]string, len(pks))
	for i, pk := range pks {
		columns[i] = pk.Name
		id.SetReplacementValue(pk.Name, row.Values[pk.Name])
	}
	newID, err := id.ReplacementID(columns)
	if err != nil {
		return err
	}
	r.replaced[id.Key()] = newID
	r.reply.Add(object.NodeIDChangeDiff{ID: id, NewID: newID})
	return nil
}

// foreignKeyValues writes the columns of rel that hold the key of target.
func (r *commitRun) foreignKeyValues(rel *schema.DbRelationship, target *object.ObjectID, values map[string]any) error {
	if target == nil {
		for _, j := range rel.Joins() {
			values[j.SourceName] = nil
		}
		return nil
	}
	id := r.permanent(target)
	if id.IsTemporary() {
		return fmt.Errorf("%w: %s references unsaved %s", ErrMissingKey, rel.SourceEntity().Name, target)
	}
	for _, j := range rel.Joins() {
		v, ok := id.Value(j.TargetName)
		if !ok {
			return fmt.Errorf("%w: %s has no %s", ErrMissingKey, id, j.TargetName)
		}
		values[j.SourceName] = v
	}
	return nil
}

func (r *commitRun) permanent(id *object.ObjectID) *object.ObjectID {
	if !id.IsTemporary() {
		return id
	}
	if newID, ok := r.replaced[id.Key()]; ok {
		return newID
	}
	return id
}

// foreignKey returns the db relationship of a to-one property when the
// source row holds the key. Flattened relationships are not written.
func foreignKey(p *object.Property) *schema.DbRelationship {
	rels := p.Relationship().DbRelationships()
	if len(rels) != 1 || !rels[0].ReferencesTarget() {
		return nil
	}
	return rels[0]
}

// update writes the touched columns of modified objects. Rows updating the
// same columns of a table share a batch.
func (r *commitRun) update(ctx context.Context, rows []pendingRow) error {
	var (
		keys    []string
		batches = make(map[string]*batch.UpdateBatchQuery)
	)
	for _, row := range rows {
		committed, current, err := r.updateSnapshots(row)
		if err != nil {
			return err
		}
		changed := batch.UpdatedSnapshot(committed, current)
		if len(changed) == 0 {
			continue
		}

		var (
			updated []*schema.DbAttribute
			names   []string
		)
		for _, attr := range row.table.Attributes() {
			if _, ok := changed[attr.Name]; ok {
				updated = append(updated, attr)
				names = append(names, attr.Name)
			}
		}
		key := row.table.Name + "|" + strings.Join(names, ",")
		q, ok := batches[key]
		if !ok {
			q = batch.NewUpdateBatchQuery(row.table, row.table.PrimaryKeys(), updated, nil)
			batches[key] = q
			keys = append(keys, key)
		}
		if err := q.AddRow(row.change.id.Snapshot(), changed, row.change.id); err != nil {
			return err
		}
	}

	for _, key := range keys {
		n, err := r.exec(ctx, batches[key])
		if err != nil {
			return err
		}
		r.updated += n
	}
	return nil
}

// updateSnapshots returns the committed and current column values of the
// touched properties of row.
func (r *commitRun) updateSnapshots(row pendingRow) (committed, current map[string]any, err error) {
	committed = make(map[string]any)
	current = make(map[string]any)
	for _, name := range row.change.props {
		p := row.desc.Property(name)
		if p == nil {
			continue
		}
		switch p.Kind() {
		case object.AttributeProperty:
			if p.Attribute().IsFlattened() {
				continue
			}
			if col := p.Attribute().DbAttribute(); col != nil {
				committed[col.Name] = row.change.old[name]
				current[col.Name] = p.ReadDirectly(row.object)
			}
		case object.ToOneProperty:
			rel := foreignKey(p)
			if rel == nil {
				continue
			}
			oldID, _ := row.change.old[name].(*object.ObjectID)
			if err := r.foreignKeyValues(rel, oldID, committed); err != nil {
				return nil, nil, err
			}
			var newID *object.ObjectID
			if target, ok := p.ReadDirectly(row.object).(object.Persistent); ok && target != nil {
				newID = target.ObjectID()
			}
			if err := r.foreignKeyValues(rel, newID, current); err != nil {
				return nil, nil, err
			}
		}
	}
	return committed, current, nil
}

func (r *commitRun) delete(ctx context.Context, table *schema.DbEntity, rows []pendingRow) error {
	q := batch.NewDeleteBatchQuery(table, table.PrimaryKeys(), nil)
	for _, row := range rows {
		if err := q.AddRow(row.change.id.Snapshot(), row.change.id); err != nil {
			return err
		}
	}
	n, err := r.exec(ctx, q)
	if err != nil {
		return err
	}
	r.deleted += n
	return nil
}

// exec runs every row of an update or delete batch. Each row must match
// exactly the row of its object.
func (r *commitRun) exec(ctx context.Context, q batch.Query) (int, error) {
	builder, err := batch.NewBuilder(q, r.d.adapter)
	if err != nil {
		return 0, err
	}
	sql, err := builder.CreateSQLString()
	if err != nil {
		return 0, err
	}
	sql = r.d.adapter.Rebind(sql)
	for i, row := range q.Rows() {
		args, err := batch.RowArgs(builder, i)
		if err != nil {
			return 0, err
		}
		res, err := r.tx.Exec(ctx, sql, args...)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", q.DbEntity().Name, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if affected == 0 {
			return 0, fmt.Errorf("%w: %s %s", ErrRowNotFound, q.DbEntity().Name, row.ID)
		}
	}
	return len(q.Rows()), nil
}
