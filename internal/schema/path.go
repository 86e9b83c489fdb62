package schema

import (
	"fmt"
	"strings"
)

// PathComponent is one resolved step of a path. Exactly one of Attribute,
// Relationship or AliasedPath is set.
type PathComponent[A, R comparable] struct {
	Name         string
	Attribute    A
	Relationship R
	JoinType     JoinType
	Last         bool

	// AliasedPath holds the resolved relationship path an alias stands for.
	AliasedPath []PathComponent[A, R]
}

// IsAlias reports whether the component is an alias expansion.
func (c PathComponent[A, R]) IsAlias() bool { return c.AliasedPath != nil }

// ObjPathComponent is a component of an object path.
type ObjPathComponent = PathComponent[*ObjAttribute, *ObjRelationship]

// DbPathComponent is a component of a db path.
type DbPathComponent = PathComponent[*DbAttribute, *DbRelationship]

type pathLookup[E, A, R comparable] struct {
	attribute    func(E, string) A
	relationship func(E, string) R
	target       func(R) E
}

func resolvePath[E, A, R comparable](root E, path string, aliases map[string]string, lookup pathLookup[E, A, R]) ([]PathComponent[A, R], error) {
	var (
		zeroE E
		zeroA A
		zeroR R
	)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	segments := strings.Split(path, ".")
	components := make([]PathComponent[A, R], 0, len(segments))
	current := root

	for i, segment := range segments {
		last := i == len(segments)-1
		name, joinType := segment, JoinInner
		if strings.HasSuffix(name, OuterJoinIndicator) {
			name = strings.TrimSuffix(name, OuterJoinIndicator)
			joinType = JoinLeftOuter
		}
		if name == "" {
			return nil, fmt.Errorf("%w: empty component in %q", ErrInvalidPath, path)
		}
		if current == zeroE {
			return nil, fmt.Errorf("%w: can't resolve %q in %q, previous relationship has no target entity", ErrInvalidPath, name, path)
		}

		if attr := lookup.attribute(current, name); attr != zeroA {
			if !last {
				return nil, fmt.Errorf("%w: attribute must be the last component of the path: %q", ErrInvalidPath, name)
			}
			components = append(components, PathComponent[A, R]{
				Name: name, Attribute: attr, JoinType: joinType, Last: true,
			})
			continue
		}

		if rel := lookup.relationship(current, name); rel != zeroR {
			current = lookup.target(rel)
			components = append(components, PathComponent[A, R]{
				Name: name, Relationship: rel, JoinType: joinType, Last: last,
			})
			continue
		}

		if aliased, ok := aliases[name]; ok {
			sub, err := resolvePath(current, aliased, nil, lookup)
			if err != nil {
				return nil, fmt.Errorf("alias %q: %w", name, err)
			}
			for _, part := range sub {
				if part.Relationship == zeroR {
					return nil, fmt.Errorf("%w: non-relationship aliased path part: %q", ErrInvalidPath, part.Name)
				}
			}
			current = lookup.target(sub[len(sub)-1].Relationship)
			components = append(components, PathComponent[A, R]{
				Name: name, JoinType: joinType, Last: last, AliasedPath: sub,
			})
			continue
		}

		return nil, fmt.Errorf("%w: can't resolve path component %q in %q", ErrInvalidPath, name, path)
	}
	return components, nil
}

func lastComponent[A, R comparable](components []PathComponent[A, R], err error) (PathComponent[A, R], error) {
	if err != nil {
		return PathComponent[A, R]{}, err
	}
	last := components[len(components)-1]
	if last.IsAlias() {
		return last.AliasedPath[len(last.AliasedPath)-1], nil
	}
	return last, nil
}
