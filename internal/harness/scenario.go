package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/objgraph/internal/query"
)

// Scenario defines one harness run.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Schema is the CUE data map. Empty means the gallery fixture.
	Schema string `yaml:"schema,omitempty"`

	// Setup seeds the database. Setup steps must succeed.
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Steps run in order. A failing step fails the scenario unless its
	// expect clause names the error.
	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SetupStep runs raw SQL or inserts an object. Exactly one is set.
type SetupStep struct {
	SQL    string      `yaml:"sql,omitempty"`
	Insert *InsertStep `yaml:"insert,omitempty"`
}

// InsertStep creates an object in a new context and commits it.
type InsertStep struct {
	Entity string         `yaml:"entity"`
	Values map[string]any `yaml:"values"`
}

// Step runs a query or inserts an object. Exactly one is set.
type Step struct {
	Query  *query.File   `yaml:"query,omitempty"`
	Insert *InsertStep   `yaml:"insert,omitempty"`
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause checks the outcome of a step. Unset fields are not checked.
type ExpectClause struct {
	// SQL is the exact translated statement.
	SQL string `yaml:"sql,omitempty"`

	// Count is the number of returned rows or objects.
	Count *int `yaml:"count,omitempty"`

	// Rows are matched by position. Only the listed keys are compared.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Error is a substring of the expected error.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final database state.
type Assertion struct {
	Type   string         `yaml:"type"`
	Table  string         `yaml:"table"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
	Count  int            `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertRowCount   = "row_count"
)

// LoadScenario reads and parses a scenario YAML file. The schema path is
// resolved against the directory of path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict fields catch typos like "assertion:" for "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema)
		}
	}

	for i, step := range s.Setup {
		if (step.SQL == "") == (step.Insert == nil) {
			return fmt.Errorf("setup[%d]: exactly one of sql or insert is required", i)
		}
		if step.Insert != nil {
			if err := validateInsert(step.Insert); err != nil {
				return fmt.Errorf("setup[%d]: %w", i, err)
			}
		}
	}

	for i, step := range s.Steps {
		if (step.Query == nil) == (step.Insert == nil) {
			return fmt.Errorf("steps[%d]: exactly one of query or insert is required", i)
		}
		if step.Query != nil && step.Query.Entity == "" {
			return fmt.Errorf("steps[%d]: query entity is required", i)
		}
		if step.Insert != nil {
			if err := validateInsert(step.Insert); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
		if e := step.Expect; e != nil && e.Count != nil && *e.Count < 0 {
			return fmt.Errorf("steps[%d].expect: count must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateInsert(step *InsertStep) error {
	if step.Entity == "" {
		return fmt.Errorf("insert entity is required")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Table == "" {
		return fmt.Errorf("assertions[%d]: table is required for %s", index, a.Type)
	}

	switch a.Type {
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
