package query

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/object"
)

// File is the YAML form of a SelectQuery.
//
//	entity: Artist
//	qualifier: {op: "=", path: name, value: Monet}
//	orderings: [{path: name, desc: true}]
//	prefetch: [paintings]
//	limit: 10
//	cache: LOCAL_CACHE
type File struct {
	Entity    string         `yaml:"entity"`
	Qualifier *exp.Spec      `yaml:"qualifier,omitempty"`
	Orderings []FileOrdering `yaml:"orderings,omitempty"`
	Prefetch  []string       `yaml:"prefetch,omitempty"`
	Distinct  bool           `yaml:"distinct,omitempty"`
	Limit     int            `yaml:"limit,omitempty"`
	Offset    int            `yaml:"offset,omitempty"`
	DataRows  bool           `yaml:"data_rows,omitempty"`
	Cache     string         `yaml:"cache,omitempty"`
}

// FileOrdering is the YAML form of an Ordering.
type FileOrdering struct {
	Path       string `yaml:"path"`
	Desc       bool   `yaml:"desc,omitempty"`
	IgnoreCase bool   `yaml:"ignore_case,omitempty"`
}

// ParseFile decodes a YAML query document.
func ParseFile(data []byte) (*SelectQuery, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	return f.Build()
}

// Build converts the file form into a SelectQuery.
func (f File) Build() (*SelectQuery, error) {
	if f.Entity == "" {
		return nil, fmt.Errorf("query: entity is required")
	}
	s := NewSelectQuery(f.Entity, nil)
	if f.Qualifier != nil {
		q, err := f.Qualifier.Build()
		if err != nil {
			return nil, fmt.Errorf("query qualifier: %w", err)
		}
		s.Qualifier = q
	}
	for _, o := range f.Orderings {
		s.Orderings = append(s.Orderings, Ordering{Path: o.Path, Descending: o.Desc, IgnoreCase: o.IgnoreCase})
	}
	for _, p := range f.Prefetch {
		s.AddPrefetch(p)
	}
	s.Distinct = f.Distinct
	s.FetchLimit = f.Limit
	s.FetchOffset = f.Offset
	s.FetchingDataRows = f.DataRows
	if f.Cache != "" {
		strategy, err := object.ParseCacheStrategy(f.Cache)
		if err != nil {
			return nil, err
		}
		s.CacheStrategy = strategy
	}
	return s, nil
}
