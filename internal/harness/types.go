package harness

// Trace event types.
const (
	EventExec   = "exec"
	EventInsert = "insert"
	EventQuery  = "query"
)

// TraceEvent records one setup or step of a run.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Type   string `json:"type"`
	Entity string `json:"entity,omitempty"`

	// SQL is the executed setup statement or the translated query.
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`

	// Rows holds data rows, or the attribute values of fetched objects.
	Rows []map[string]any `json:"rows,omitempty"`

	// ID is the permanent id of an inserted object.
	ID map[string]any `json:"id,omitempty"`

	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// record appends ev with the next sequence number and returns its index.
func (r *Result) record(ev TraceEvent) int {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
	return len(r.Trace) - 1
}
