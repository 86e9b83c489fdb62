package cli

import (
	"fmt"
	"os"

	"github.com/roach88/objgraph/internal/access"
	"github.com/roach88/objgraph/internal/config"
	"github.com/roach88/objgraph/internal/query"
	"github.com/roach88/objgraph/internal/schema"
	"github.com/roach88/objgraph/internal/store"
)

// Error codes for CLI responses.
const (
	ErrCodeUsage       = "E_USAGE"
	ErrCodeConfig      = "E_CONFIG"
	ErrCodeSchema      = "E_SCHEMA"
	ErrCodeQuery       = "E_QUERY"
	ErrCodeTranslate   = "E_TRANSLATE"
	ErrCodeDatabase    = "E_DATABASE"
	ErrCodeNotFound    = "E_NOT_FOUND"
	ErrCodeTestFailed  = "E_TEST_FAILED"
	ErrCodeWriteFailed = "E_WRITE_FAILED"
)

// LoadError is a failure to prepare a command, tagged with its CLI code.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LoadError) Unwrap() error { return e.Err }

// loadResolver reads the data map named by schema.path.
func loadResolver(cfg *config.Config) (*schema.EntityResolver, error) {
	m, err := schema.LoadCUE(cfg.Schema.Path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("loading schema %s", cfg.Schema.Path), Err: err}
	}
	resolver := schema.NewEntityResolver(m)
	if err := resolver.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("invalid schema %s", cfg.Schema.Path), Err: err}
	}
	return resolver, nil
}

// loadQuery reads a YAML query file.
func loadQuery(path string) (*query.SelectQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading query %s", path), Err: err}
	}
	q, err := query.ParseFile(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeQuery, Message: fmt.Sprintf("parsing query %s", path), Err: err}
	}
	return q, nil
}

// openStore opens database.path with the driver of database.adapter.
// For postgres the path is a connection string.
func openStore(cfg *config.Config) (*store.Store, error) {
	var (
		st  *store.Store
		err error
	)
	if cfg.Database.Adapter == "postgres" {
		st, err = store.OpenDriver("postgres", cfg.Database.Path)
	} else {
		st, err = store.Open(cfg.Database.Path)
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDatabase, Message: "opening database", Err: err}
	}
	return st, nil
}

// openDomain opens the store and builds a domain over it. The caller
// closes the returned store.
func openDomain(cfg *config.Config) (*access.Domain, *store.Store, error) {
	resolver, err := loadResolver(cfg)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	d := access.New(st, cfg.Adapter(), resolver, access.WithTranslatorOptions(cfg.TranslatorOptions()...))
	return d, st, nil
}
