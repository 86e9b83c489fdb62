package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/objgraph/internal/access"
	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/objcontext"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
	"github.com/roach88/objgraph/internal/store"
	"github.com/roach88/objgraph/internal/testutil"
	"github.com/roach88/objgraph/internal/translator"
)

// Harness is the scenario execution engine. A Harness serves one run.
type Harness struct {
	store      *store.Store
	domain     *access.Domain
	adapter    dbadapter.DbAdapter
	resolver   *schema.EntityResolver
	translator []translator.Option
}

// Option configures a run.
type Option func(*Harness)

// WithTranslatorOptions sets the SELECT translator options used by the
// domain and for the traced SQL.
func WithTranslatorOptions(opts ...translator.Option) Option {
	return func(h *Harness) { h.translator = opts }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the data map and create its tables in a fresh in-memory database
//  2. Execute setup steps
//  3. Execute steps, checking expect clauses
//  4. Evaluate assertions against the final database state
//
// An error is returned only when the run could not be carried out. Failed
// expectations are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	resolver, err := loadResolver(scenario.Schema)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	adapter := dbadapter.NewSQLiteAdapter()
	if err := st.CreateSchema(ctx, adapter, resolver.DbEntities()); err != nil {
		return nil, err
	}

	h := &Harness{
		store:    st,
		adapter:  adapter,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.domain = access.New(st, adapter, resolver, access.WithTranslatorOptions(h.translator...))

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	h.executeSteps(ctx, scenario.Steps, result)

	for _, msg := range EvaluateAssertions(ctx, st, scenario.Assertions) {
		result.AddError(msg)
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"events", len(result.Trace),
	)
	return result, nil
}

func loadResolver(path string) (*schema.EntityResolver, error) {
	if path == "" {
		return testutil.GalleryResolver(), nil
	}
	m, err := schema.LoadCUE(path)
	if err != nil {
		return nil, err
	}
	resolver := schema.NewEntityResolver(m)
	if err := resolver.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", path, err)
	}
	return resolver, nil
}

// executeSetup runs all setup steps. Any failure aborts the run.
func (h *Harness) executeSetup(ctx context.Context, setup []SetupStep, result *Result) error {
	for i, step := range setup {
		if step.SQL != "" {
			if _, err := h.store.Exec(ctx, step.SQL); err != nil {
				return fmt.Errorf("setup step %d: %w", i, err)
			}
			result.record(TraceEvent{Type: EventExec, SQL: step.SQL})
			continue
		}
		ev, err := h.insert(ctx, step.Insert)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		result.record(ev)
	}
	return nil
}

// executeSteps runs every step and records its outcome. A step error is a
// failure unless the step expects it.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		var (
			ev  TraceEvent
			err error
		)
		if step.Query != nil {
			ev, err = h.query(ctx, step)
		} else {
			ev, err = h.insert(ctx, step.Insert)
		}
		if err != nil {
			ev.Error = err.Error()
		}
		idx := result.record(ev)

		for _, msg := range checkExpect(step.Expect, result.Trace[idx], err) {
			result.AddError(fmt.Sprintf("steps[%d]: %s", i, msg))
		}
	}
}

// query translates the step for the trace and runs it through a new
// context of the domain.
func (h *Harness) query(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Type: EventQuery, Entity: step.Query.Entity}
	sel, err := step.Query.Build()
	if err != nil {
		return ev, err
	}

	stmt, err := translator.NewSelectTranslator(sel, h.adapter, h.resolver, h.translator...).CreateSQL()
	if err != nil {
		return ev, err
	}
	ev.SQL = stmt.SQL
	for _, p := range stmt.Params {
		ev.Params = append(ev.Params, p.Value)
	}

	oc := h.domain.NewContext()
	list, err := oc.PerformQuery(ctx, sel)
	if err != nil {
		return ev, err
	}
	ev.Rows = make([]map[string]any, 0, len(list))
	for _, v := range list {
		switch v := v.(type) {
		case object.DataRow:
			ev.Rows = append(ev.Rows, map[string]any(v))
		case object.Persistent:
			ev.Rows = append(ev.Rows, AttributeValues(oc, v))
		default:
			return ev, fmt.Errorf("unexpected result %T", v)
		}
	}
	return ev, nil
}

// AttributeValues returns the attributes of o keyed by property name.
// Relationships are left out.
func AttributeValues(oc *objcontext.Context, o object.Persistent) map[string]any {
	out := map[string]any{}
	desc := oc.ClassDescriptor(o.EntityName())
	if desc == nil {
		return out
	}
	for _, p := range desc.Properties() {
		if p.Kind() == object.AttributeProperty {
			out[p.Name()] = p.ReadDirectly(o)
		}
	}
	return out
}

// insert creates an object, writes its values in key order and commits.
func (h *Harness) insert(ctx context.Context, step *InsertStep) (TraceEvent, error) {
	ev := TraceEvent{Type: EventInsert, Entity: step.Entity}
	oc := h.domain.NewContext()
	o, err := oc.NewObject(step.Entity)
	if err != nil {
		return ev, err
	}

	for _, k := range sortedKeys(step.Values) {
		if oc.ClassDescriptor(step.Entity).Property(k) == nil {
			return ev, fmt.Errorf("%s has no property %q", step.Entity, k)
		}
		if err := o.WriteProperty(ctx, k, step.Values[k]); err != nil {
			return ev, err
		}
	}

	if err := oc.Commit(ctx); err != nil {
		return ev, err
	}
	ev.ID = o.ObjectID().Snapshot()
	return ev, nil
}

// checkExpect compares a recorded step against its expect clause.
func checkExpect(expect *ExpectClause, ev TraceEvent, err error) []string {
	if expect == nil || expect.Error == "" {
		if err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", err)}
		}
	}
	if expect == nil {
		return nil
	}

	var msgs []string
	if expect.Error != "" {
		switch {
		case err == nil:
			msgs = append(msgs, fmt.Sprintf("expected error containing %q, got none", expect.Error))
		case !strings.Contains(err.Error(), expect.Error):
			msgs = append(msgs, fmt.Sprintf("expected error containing %q, got %q", expect.Error, err.Error()))
		}
		return msgs
	}

	if expect.SQL != "" && expect.SQL != ev.SQL {
		msgs = append(msgs, fmt.Sprintf("sql mismatch\n  Expected: %s\n  Actual: %s", expect.SQL, ev.SQL))
	}
	if expect.Count != nil && *expect.Count != len(ev.Rows) {
		msgs = append(msgs, fmt.Sprintf("expected %d rows, got %d", *expect.Count, len(ev.Rows)))
	}
	if len(expect.Rows) > len(ev.Rows) {
		msgs = append(msgs, fmt.Sprintf("expected at least %d rows, got %d", len(expect.Rows), len(ev.Rows)))
		return msgs
	}
	for i, want := range expect.Rows {
		if diff := rowDiff(want, ev.Rows[i]); diff != "" {
			msgs = append(msgs, fmt.Sprintf("row %d mismatch (-want +got):\n%s", i, diff))
		}
	}
	return msgs
}
