package schema

import (
	"errors"
	"fmt"
)

// DataMap is a named collection of db and object entities.
type DataMap struct {
	Name string

	dbEntities  []*DbEntity
	dbIndex     map[string]*DbEntity
	objEntities []*ObjEntity
	objIndex    map[string]*ObjEntity
	resolver    *EntityResolver
}

// NewDataMap returns an empty data map.
func NewDataMap(name string) *DataMap {
	return &DataMap{
		Name:     name,
		dbIndex:  make(map[string]*DbEntity),
		objIndex: make(map[string]*ObjEntity),
	}
}

// AddDbEntity registers a table.
func (m *DataMap) AddDbEntity(e *DbEntity) error {
	if _, exists := m.dbIndex[e.Name]; exists {
		return fmt.Errorf("%w: db entity %s", ErrDuplicate, e.Name)
	}
	e.dataMap = m
	m.dbEntities = append(m.dbEntities, e)
	m.dbIndex[e.Name] = e
	return nil
}

// AddObjEntity registers an object entity.
func (m *DataMap) AddObjEntity(e *ObjEntity) error {
	if _, exists := m.objIndex[e.Name]; exists {
		return fmt.Errorf("%w: obj entity %s", ErrDuplicate, e.Name)
	}
	e.dataMap = m
	m.objEntities = append(m.objEntities, e)
	m.objIndex[e.Name] = e
	return nil
}

// DbEntity looks a table up in this map, then in the resolver namespace.
func (m *DataMap) DbEntity(name string) *DbEntity {
	if e, ok := m.dbIndex[name]; ok {
		return e
	}
	if m.resolver != nil {
		return m.resolver.DbEntity(name)
	}
	return nil
}

// ObjEntity looks an entity up in this map, then in the resolver namespace.
func (m *DataMap) ObjEntity(name string) *ObjEntity {
	if e, ok := m.objIndex[name]; ok {
		return e
	}
	if m.resolver != nil {
		return m.resolver.ObjEntity(name)
	}
	return nil
}

// DbEntities returns the tables in registration order.
func (m *DataMap) DbEntities() []*DbEntity { return m.dbEntities }

// ObjEntities returns the object entities in registration order.
func (m *DataMap) ObjEntities() []*ObjEntity { return m.objEntities }

func (m *DataMap) allObjEntities() []*ObjEntity {
	if m.resolver != nil {
		return m.resolver.ObjEntities()
	}
	return m.objEntities
}

// EntityResolver is the lookup namespace over one or more data maps.
type EntityResolver struct {
	maps []*DataMap
}

// NewEntityResolver groups maps into one namespace.
func NewEntityResolver(maps ...*DataMap) *EntityResolver {
	r := &EntityResolver{}
	for _, m := range maps {
		r.AddDataMap(m)
	}
	return r
}

// AddDataMap adds m to the namespace.
func (r *EntityResolver) AddDataMap(m *DataMap) {
	m.resolver = r
	r.maps = append(r.maps, m)
}

// DataMaps returns the maps in registration order.
func (r *EntityResolver) DataMaps() []*DataMap { return r.maps }

// DbEntity returns a table by name, or nil.
func (r *EntityResolver) DbEntity(name string) *DbEntity {
	for _, m := range r.maps {
		if e, ok := m.dbIndex[name]; ok {
			return e
		}
	}
	return nil
}

// ObjEntity returns an object entity by name, or nil.
func (r *EntityResolver) ObjEntity(name string) *ObjEntity {
	for _, m := range r.maps {
		if e, ok := m.objIndex[name]; ok {
			return e
		}
	}
	return nil
}

// LookupObjEntity is ObjEntity with an error for unknown names.
func (r *EntityResolver) LookupObjEntity(name string) (*ObjEntity, error) {
	if e := r.ObjEntity(name); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
}

// DbEntities returns every table in the namespace.
func (r *EntityResolver) DbEntities() []*DbEntity {
	var out []*DbEntity
	for _, m := range r.maps {
		out = append(out, m.dbEntities...)
	}
	return out
}

// ObjEntities returns every object entity in the namespace.
func (r *EntityResolver) ObjEntities() []*ObjEntity {
	var out []*ObjEntity
	for _, m := range r.maps {
		out = append(out, m.objEntities...)
	}
	return out
}

// Validate checks the namespace for dangling references and relationships
// without joins. All problems are reported together.
func (r *EntityResolver) Validate() error {
	var errs []error
	for _, db := range r.DbEntities() {
		for _, rel := range db.Relationships() {
			where := db.Name + "." + rel.Name
			if rel.TargetEntity() == nil {
				errs = append(errs, fmt.Errorf("%w: %s targets unknown table %s", ErrInvalidMapping, where, rel.TargetEntityName))
				continue
			}
			if len(rel.Joins()) == 0 {
				errs = append(errs, fmt.Errorf("%w: %s has no joins", ErrInvalidMapping, where))
			}
			for _, j := range rel.Joins() {
				if j.Source() == nil || j.Target() == nil {
					errs = append(errs, fmt.Errorf("%w: %s join %s->%s references unknown columns", ErrInvalidMapping, where, j.SourceName, j.TargetName))
				}
			}
		}
	}
	for _, obj := range r.ObjEntities() {
		if obj.DbEntity() == nil {
			errs = append(errs, fmt.Errorf("%w: %s maps to unknown table %q", ErrInvalidMapping, obj.Name, obj.DbEntityName))
			continue
		}
		if obj.SuperEntityName != "" && obj.SuperEntity() == nil {
			errs = append(errs, fmt.Errorf("%w: %s extends unknown entity %s", ErrInvalidMapping, obj.Name, obj.SuperEntityName))
		}
		for _, a := range obj.attrs {
			if a.DbAttribute() == nil {
				errs = append(errs, fmt.Errorf("%w: %s.%s maps to unknown column %q", ErrInvalidMapping, obj.Name, a.Name, a.DbPath()))
			}
		}
		for _, rel := range obj.rels {
			if rel.TargetEntity() == nil {
				errs = append(errs, fmt.Errorf("%w: %s.%s targets unknown entity %s", ErrInvalidMapping, obj.Name, rel.Name, rel.TargetEntityName))
			}
			if rel.DbRelationships() == nil {
				errs = append(errs, fmt.Errorf("%w: %s.%s maps to unknown db path %q", ErrInvalidMapping, obj.Name, rel.Name, rel.DbRelationshipPath))
			}
		}
	}
	return errors.Join(errs...)
}
