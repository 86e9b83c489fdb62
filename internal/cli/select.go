package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/objgraph/internal/access"
	"github.com/roach88/objgraph/internal/cache"
	"github.com/roach88/objgraph/internal/fault"
	"github.com/roach88/objgraph/internal/harness"
	"github.com/roach88/objgraph/internal/objcontext"
	"github.com/roach88/objgraph/internal/object"
)

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	*RootOptions
	Metrics bool // print counters to stderr after the query
}

// SelectResult is the payload of the select command.
type SelectResult struct {
	Entity string           `json:"entity"`
	Count  int              `json:"count"`
	Rows   []map[string]any `json:"rows"`
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "select <query.yaml>",
		Short: "Run a query against the database",
		Long: `Run a YAML query through an object context and print the result.

Object queries print each object's id and attributes. Queries with
data_rows: true print the raw rows. With cache.enabled, the context uses
a query cache and the query's cache strategy applies.

Examples:
  objgraph select queries/paintings.yaml
  objgraph select queries/paintings.yaml --format json --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print metrics to stderr")

	return cmd
}

func runSelect(opts *SelectOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.Config()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	q, err := loadQuery(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeQuery, err)
	}
	domain, st, err := openDomain(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err)
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	access.MustRegisterMetrics(registry)
	cache.MustRegisterMetrics(registry)
	fault.MustRegisterMetrics(registry)

	var ctxOpts []objcontext.Option
	if cfg.Cache.Enabled {
		ctxOpts = append(ctxOpts, objcontext.WithQueryCache(cache.New("cli")))
	}
	oc := domain.NewContext(ctxOpts...)

	list, err := oc.PerformQuery(cmd.Context(), q)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDatabase, err)
	}
	formatter.VerboseLog("Fetched %d result(s) for %s", len(list), q.EntityName)

	result := SelectResult{Entity: q.EntityName, Count: len(list), Rows: make([]map[string]any, 0, len(list))}
	var ids []string
	for _, v := range list {
		switch v := v.(type) {
		case object.DataRow:
			result.Rows = append(result.Rows, map[string]any(v))
		case object.Persistent:
			row := harness.AttributeValues(oc, v)
			result.Rows = append(result.Rows, row)
			ids = append(ids, v.ObjectID().String())
		}
	}

	if opts.Metrics {
		if err := writeMetrics(formatter.GetErrWriter(), registry); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeWriteFailed, err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	var sb strings.Builder
	for i, row := range result.Rows {
		if i < len(ids) {
			sb.WriteString(ids[i])
			sb.WriteByte(' ')
		}
		sb.WriteString(formatRow(row))
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "%d row(s)", result.Count)
	return formatter.Success(sb.String())
}

// formatRow renders a row as key=value pairs in key order.
func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v := row[k]
		if v == nil {
			v = "NULL"
		}
		parts[i] = fmt.Sprintf("%s=%v", k, v)
	}
	return strings.Join(parts, " ")
}

// writeMetrics prints every counter and gauge sample in registry.
func writeMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			value := m.GetCounter().GetValue()
			if g := m.GetGauge(); g != nil {
				value = g.GetValue()
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
