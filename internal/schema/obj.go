package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/objgraph/internal/exp"
)

// ObjAttribute maps an object property onto a column.
type ObjAttribute struct {
	Name string

	// DbAttributePath is the column path relative to the entity's table.
	// Empty means a column with the attribute's name.
	DbAttributePath string

	entity *ObjEntity
}

// Entity returns the declaring entity.
func (a *ObjAttribute) Entity() *ObjEntity { return a.entity }

// DbPath returns the column path of the attribute.
func (a *ObjAttribute) DbPath() string {
	if a.DbAttributePath == "" {
		return a.Name
	}
	return a.DbAttributePath
}

// DbPathComponents resolves the column path against the entity's table.
func (a *ObjAttribute) DbPathComponents() ([]DbPathComponent, error) {
	db := a.entity.DbEntity()
	if db == nil {
		return nil, fmt.Errorf("%w: %s has no db entity", ErrUnknownEntity, a.entity.Name)
	}
	return db.ResolvePath(a.DbPath(), nil)
}

// DbAttribute returns the mapped column, or nil if unresolvable.
func (a *ObjAttribute) DbAttribute() *DbAttribute {
	components, err := a.DbPathComponents()
	if err != nil {
		return nil
	}
	return components[len(components)-1].Attribute
}

// IsFlattened reports whether the column is reached through relationships.
func (a *ObjAttribute) IsFlattened() bool {
	return strings.Contains(a.DbPath(), ".")
}

// ObjRelationship maps an object relationship onto a chain of
// DbRelationships.
type ObjRelationship struct {
	Name             string
	TargetEntityName string

	// DbRelationshipPath names the db relationships, dot-separated.
	DbRelationshipPath string

	entity *ObjEntity
}

// SourceEntity returns the declaring entity.
func (r *ObjRelationship) SourceEntity() *ObjEntity { return r.entity }

// TargetEntity returns the target entity, or nil if it is not registered.
func (r *ObjRelationship) TargetEntity() *ObjEntity {
	if r.entity == nil || r.entity.dataMap == nil {
		return nil
	}
	return r.entity.dataMap.ObjEntity(r.TargetEntityName)
}

// DbRelationships resolves the relationship chain. Unresolvable chains
// yield nil.
func (r *ObjRelationship) DbRelationships() []*DbRelationship {
	if r.entity == nil {
		return nil
	}
	db := r.entity.DbEntity()
	if db == nil {
		return nil
	}
	var rels []*DbRelationship
	for _, name := range strings.Split(r.DbRelationshipPath, ".") {
		if db == nil {
			return nil
		}
		rel := db.Relationship(name)
		if rel == nil {
			return nil
		}
		rels = append(rels, rel)
		db = rel.TargetEntity()
	}
	return rels
}

// IsToMany reports whether any db relationship in the chain is to-many.
func (r *ObjRelationship) IsToMany() bool {
	for _, rel := range r.DbRelationships() {
		if rel.ToMany {
			return true
		}
	}
	return false
}

// IsFlattened reports whether the relationship spans several tables.
func (r *ObjRelationship) IsFlattened() bool {
	return strings.Contains(r.DbRelationshipPath, ".")
}

// ReverseDbRelationshipPath returns the db path from the target back to the
// source.
func (r *ObjRelationship) ReverseDbRelationshipPath() (string, error) {
	rels := r.DbRelationships()
	if len(rels) == 0 {
		return "", fmt.Errorf("%w: %s.%s has no db relationships", ErrInvalidMapping, r.entity.Name, r.Name)
	}
	names := make([]string, len(rels))
	for i, rel := range rels {
		rev := rel.ReverseRelationship()
		if rev == nil {
			return "", fmt.Errorf("%w: no reverse for db relationship %s.%s", ErrInvalidMapping, rel.source.Name, rel.Name)
		}
		names[len(rels)-1-i] = rev.Name
	}
	return strings.Join(names, "."), nil
}

// ReverseRelationship returns the target's relationship that maps the
// reversed db chain, or nil.
func (r *ObjRelationship) ReverseRelationship() *ObjRelationship {
	target := r.TargetEntity()
	if target == nil {
		return nil
	}
	reversePath, err := r.ReverseDbRelationshipPath()
	if err != nil {
		return nil
	}
	for _, candidate := range target.Relationships() {
		if candidate.TargetEntityName == r.entity.Name && candidate.DbRelationshipPath == reversePath {
			return candidate
		}
	}
	// the reverse may point at a super entity
	for _, candidate := range target.Relationships() {
		if candidate.DbRelationshipPath == reversePath && r.entity.IsSubentityOf(candidate.TargetEntity()) {
			return candidate
		}
	}
	return nil
}

// ObjEntity maps a persistent object type onto a table.
type ObjEntity struct {
	Name            string
	DbEntityName    string
	SuperEntityName string

	// Qualifier restricts which rows of the table belong to this entity.
	// Only set for entities in a single-table inheritance hierarchy.
	Qualifier *exp.Expression

	attrs     []*ObjAttribute
	attrIndex map[string]*ObjAttribute
	rels      []*ObjRelationship
	relIndex  map[string]*ObjRelationship
	dataMap   *DataMap
}

// NewObjEntity returns an entity mapped to the named table.
func NewObjEntity(name, dbEntityName string) *ObjEntity {
	return &ObjEntity{
		Name:         name,
		DbEntityName: dbEntityName,
		attrIndex:    make(map[string]*ObjAttribute),
		relIndex:     make(map[string]*ObjRelationship),
	}
}

// DataMap returns the owning data map.
func (e *ObjEntity) DataMap() *DataMap { return e.dataMap }

// SuperEntity returns the parent entity, or nil.
func (e *ObjEntity) SuperEntity() *ObjEntity {
	if e.SuperEntityName == "" || e.dataMap == nil {
		return nil
	}
	return e.dataMap.ObjEntity(e.SuperEntityName)
}

// SubEntities returns the direct children in registration order.
func (e *ObjEntity) SubEntities() []*ObjEntity {
	if e.dataMap == nil {
		return nil
	}
	var subs []*ObjEntity
	for _, candidate := range e.dataMap.allObjEntities() {
		if candidate.SuperEntityName == e.Name {
			subs = append(subs, candidate)
		}
	}
	return subs
}

// IsSubentityOf reports whether other is e or one of e's ancestors.
func (e *ObjEntity) IsSubentityOf(other *ObjEntity) bool {
	if other == nil {
		return false
	}
	for cur := e; cur != nil; cur = cur.SuperEntity() {
		if cur == other {
			return true
		}
	}
	return false
}

// DbEntity returns the mapped table, inherited from the super entity when
// not declared.
func (e *ObjEntity) DbEntity() *DbEntity {
	if e.DbEntityName == "" {
		if super := e.SuperEntity(); super != nil {
			return super.DbEntity()
		}
		return nil
	}
	if e.dataMap == nil {
		return nil
	}
	return e.dataMap.DbEntity(e.DbEntityName)
}

// AddAttribute appends a declared attribute.
func (e *ObjEntity) AddAttribute(a *ObjAttribute) error {
	if _, exists := e.attrIndex[a.Name]; exists {
		return fmt.Errorf("%w: attribute %s.%s", ErrDuplicate, e.Name, a.Name)
	}
	a.entity = e
	e.attrs = append(e.attrs, a)
	e.attrIndex[a.Name] = a
	return nil
}

// AddRelationship appends a declared relationship.
func (e *ObjEntity) AddRelationship(r *ObjRelationship) error {
	if _, exists := e.relIndex[r.Name]; exists {
		return fmt.Errorf("%w: relationship %s.%s", ErrDuplicate, e.Name, r.Name)
	}
	r.entity = e
	e.rels = append(e.rels, r)
	e.relIndex[r.Name] = r
	return nil
}

// Attribute returns a declared or inherited attribute, or nil.
func (e *ObjEntity) Attribute(name string) *ObjAttribute {
	for cur := e; cur != nil; cur = cur.SuperEntity() {
		if a, ok := cur.attrIndex[name]; ok {
			return a
		}
	}
	return nil
}

// Relationship returns a declared or inherited relationship, or nil.
func (e *ObjEntity) Relationship(name string) *ObjRelationship {
	for cur := e; cur != nil; cur = cur.SuperEntity() {
		if r, ok := cur.relIndex[name]; ok {
			return r
		}
	}
	return nil
}

// Attributes returns inherited attributes first, then declared ones.
func (e *ObjEntity) Attributes() []*ObjAttribute {
	var out []*ObjAttribute
	if super := e.SuperEntity(); super != nil {
		out = append(out, super.Attributes()...)
	}
	return append(out, e.attrs...)
}

// Relationships returns inherited relationships first, then declared ones.
func (e *ObjEntity) Relationships() []*ObjRelationship {
	var out []*ObjRelationship
	if super := e.SuperEntity(); super != nil {
		out = append(out, super.Relationships()...)
	}
	return append(out, e.rels...)
}

// QualifierForEntityAndSubclasses ORs the qualifier of e with those of all
// its descendants. It returns nil when e or any descendant has none.
func (e *ObjEntity) QualifierForEntityAndSubclasses() *exp.Expression {
	q := e.Qualifier
	if q == nil {
		return nil
	}
	for _, sub := range e.SubEntities() {
		childQualifier := sub.QualifierForEntityAndSubclasses()
		if childQualifier == nil {
			return nil
		}
		q = q.OrExp(childQualifier)
	}
	return q
}

var objLookup = pathLookup[*ObjEntity, *ObjAttribute, *ObjRelationship]{
	attribute:    (*ObjEntity).Attribute,
	relationship: (*ObjEntity).Relationship,
	target:       (*ObjRelationship).TargetEntity,
}

// ResolvePath resolves an object path against e.
func (e *ObjEntity) ResolvePath(path string, aliases map[string]string) ([]ObjPathComponent, error) {
	return resolvePath(e, path, aliases, objLookup)
}

// LastPathComponent returns the final component of a resolved object path.
func (e *ObjEntity) LastPathComponent(path string, aliases map[string]string) (ObjPathComponent, error) {
	return lastComponent(e.ResolvePath(path, aliases))
}

// TranslateToDbPath rewrites every object path in q into the equivalent db
// path rooted at e's table.
func (e *ObjEntity) TranslateToDbPath(q *exp.Expression) (*exp.Expression, error) {
	if q == nil {
		return nil, nil
	}
	if e.DbEntity() == nil {
		return nil, fmt.Errorf("%w: can't translate to db path, no db entity for %s", ErrUnknownEntity, e.Name)
	}
	var firstErr error
	out := q.Transform(func(node *exp.Expression) *exp.Expression {
		if node.Type() != exp.ObjPath || firstErr != nil {
			return node
		}
		dbPath, err := e.toDbPath(node.Path())
		if err != nil {
			firstErr = err
			return node
		}
		return exp.NewDbPath(dbPath)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (e *ObjEntity) toDbPath(path string) (string, error) {
	components, err := e.ResolvePath(path, nil)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, c := range components {
		var names []string
		switch {
		case c.Attribute != nil:
			names = strings.Split(c.Attribute.DbPath(), ".")
		case c.Relationship != nil:
			names = strings.Split(c.Relationship.DbRelationshipPath, ".")
		}
		if c.JoinType == JoinLeftOuter && len(names) > 0 {
			names[0] += OuterJoinIndicator
		}
		parts = append(parts, names...)
	}
	return strings.Join(parts, "."), nil
}
