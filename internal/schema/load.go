package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"

	"github.com/roach88/objgraph/internal/exp"
)

// LoadCUE loads a data map from a CUE file or from the CUE package in a
// directory.
//
// Layout:
//
//	name: "gallery"
//	db_entities: ARTIST: {
//	    attributes: ARTIST_ID: {type: "INTEGER", primary_key: true, generated: true}
//	    relationships: paintingArray: {
//	        target: "PAINTING", to_many: true
//	        joins: [{source: "ARTIST_ID", target: "ARTIST_ID"}]
//	    }
//	}
//	obj_entities: Artist: {
//	    db_entity: "ARTIST"
//	    attributes: artistName: "ARTIST_NAME"
//	    relationships: paintings: {target: "Painting", db_path: "paintingArray"}
//	}
//
// Qualifiers use the YAML expression form (see exp.Spec) written as CUE.
// Declaration order of attributes is kept.
func LoadCUE(path string) (*DataMap, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access schema: %w", err)
	}

	ctx := cuecontext.New()
	var v cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("no CUE instances in %s", path)
		}
		if err := instances[0].Err; err != nil {
			return nil, formatCUEError(err)
		}
		v = ctx.BuildInstance(instances[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema: %w", err)
		}
		v = ctx.CompileBytes(data, cue.Filename(path))
	}
	return CompileDataMap(v)
}

// CompileDataMap builds a data map from a CUE value.
func CompileDataMap(v cue.Value) (*DataMap, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	name := "datamap"
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		s, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		name = s
	}
	m := NewDataMap(name)

	if dbVal := v.LookupPath(cue.ParsePath("db_entities")); dbVal.Exists() {
		iter, err := dbVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			e, err := compileDbEntity(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			if err := m.AddDbEntity(e); err != nil {
				return nil, err
			}
		}
	}

	if objVal := v.LookupPath(cue.ParsePath("obj_entities")); objVal.Exists() {
		iter, err := objVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			e, err := compileObjEntity(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			if err := m.AddObjEntity(e); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

type cueAttribute struct {
	Type       string `json:"type"`
	MaxLength  int    `json:"max_length"`
	Scale      int    `json:"scale"`
	Mandatory  bool   `json:"mandatory"`
	PrimaryKey bool   `json:"primary_key"`
	Generated  bool   `json:"generated"`
}

type cueJoin struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type cueDbRelationship struct {
	Target        string    `json:"target"`
	ToMany        bool      `json:"to_many"`
	ToDependentPK bool      `json:"to_dependent_pk"`
	Joins         []cueJoin `json:"joins"`
}

func compileDbEntity(name string, v cue.Value) (*DbEntity, error) {
	e := NewDbEntity(name)

	if schemaVal := v.LookupPath(cue.ParsePath("schema")); schemaVal.Exists() {
		s, err := schemaVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		e.Schema = s
	}

	attrs := v.LookupPath(cue.ParsePath("attributes"))
	if !attrs.Exists() {
		return nil, &MappingError{Field: "db_entities." + name, Message: "attributes are required", Pos: v.Pos()}
	}
	iter, err := attrs.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		var ca cueAttribute
		if err := iter.Value().Decode(&ca); err != nil {
			return nil, formatCUEError(err)
		}
		t, err := ParseSQLType(ca.Type)
		if err != nil {
			return nil, &MappingError{Field: "db_entities." + name + "." + iter.Label(), Message: err.Error(), Pos: iter.Value().Pos()}
		}
		if err := e.AddAttribute(&DbAttribute{
			Name:       iter.Label(),
			Type:       t,
			MaxLength:  ca.MaxLength,
			Scale:      ca.Scale,
			Mandatory:  ca.Mandatory || ca.PrimaryKey,
			PrimaryKey: ca.PrimaryKey,
			Generated:  ca.Generated,
		}); err != nil {
			return nil, err
		}
	}

	if rels := v.LookupPath(cue.ParsePath("relationships")); rels.Exists() {
		iter, err := rels.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			var cr cueDbRelationship
			if err := iter.Value().Decode(&cr); err != nil {
				return nil, formatCUEError(err)
			}
			if len(cr.Joins) == 0 {
				return nil, &MappingError{Field: "db_entities." + name + "." + iter.Label(), Message: "at least one join is required", Pos: iter.Value().Pos()}
			}
			rel := &DbRelationship{
				Name:             iter.Label(),
				TargetEntityName: cr.Target,
				ToMany:           cr.ToMany,
				ToDependentPK:    cr.ToDependentPK,
			}
			for _, j := range cr.Joins {
				rel.AddJoin(j.Source, j.Target)
			}
			if err := e.AddRelationship(rel); err != nil {
				return nil, err
			}
		}
	}

	q, err := compileQualifier(v)
	if err != nil {
		return nil, err
	}
	e.Qualifier = q
	return e, nil
}

type cueObjRelationship struct {
	Target string `json:"target"`
	DbPath string `json:"db_path"`
}

func compileObjEntity(name string, v cue.Value) (*ObjEntity, error) {
	e := NewObjEntity(name, "")
	if dbVal := v.LookupPath(cue.ParsePath("db_entity")); dbVal.Exists() {
		s, err := dbVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		e.DbEntityName = s
	}
	if superVal := v.LookupPath(cue.ParsePath("super")); superVal.Exists() {
		s, err := superVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		e.SuperEntityName = s
	}
	if e.DbEntityName == "" && e.SuperEntityName == "" {
		return nil, &MappingError{Field: "obj_entities." + name, Message: "db_entity or super is required", Pos: v.Pos()}
	}

	if attrs := v.LookupPath(cue.ParsePath("attributes")); attrs.Exists() {
		iter, err := attrs.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			// either a plain column path string or {db_path: "..."}
			dbPath, err := iter.Value().String()
			if err != nil {
				dbPath, err = iter.Value().LookupPath(cue.ParsePath("db_path")).String()
				if err != nil {
					return nil, formatCUEError(err)
				}
			}
			if err := e.AddAttribute(&ObjAttribute{Name: iter.Label(), DbAttributePath: dbPath}); err != nil {
				return nil, err
			}
		}
	}

	if rels := v.LookupPath(cue.ParsePath("relationships")); rels.Exists() {
		iter, err := rels.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			var cr cueObjRelationship
			if err := iter.Value().Decode(&cr); err != nil {
				return nil, formatCUEError(err)
			}
			if err := e.AddRelationship(&ObjRelationship{
				Name:               iter.Label(),
				TargetEntityName:   cr.Target,
				DbRelationshipPath: cr.DbPath,
			}); err != nil {
				return nil, err
			}
		}
	}

	q, err := compileQualifier(v)
	if err != nil {
		return nil, err
	}
	e.Qualifier = q
	return e, nil
}

// compileQualifier reads an optional qualifier field. CUE exports JSON,
// which is valid YAML for exp.ParseSpec.
func compileQualifier(v cue.Value) (*exp.Expression, error) {
	qv := v.LookupPath(cue.ParsePath("qualifier"))
	if !qv.Exists() {
		return nil, nil
	}
	data, err := qv.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	q, err := exp.ParseSpec(data)
	if err != nil {
		return nil, &MappingError{Field: "qualifier", Message: err.Error(), Pos: qv.Pos()}
	}
	return q, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &MappingError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
