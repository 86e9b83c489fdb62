package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/objgraph/internal/translator"
)

// TranslateResult is the JSON payload of the translate command.
type TranslateResult struct {
	SQL    string           `json:"sql"`
	Params []TranslateParam `json:"params"`
}

// TranslateParam is one bound parameter of a translated statement.
type TranslateParam struct {
	Value  any    `json:"value"`
	Type   string `json:"type,omitempty"`
	Column string `json:"column,omitempty"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <query.yaml>",
		Short: "Print the SQL of a query",
		Long: `Translate a YAML query to SQL with the configured adapter.

Nothing is executed. Text output is the statement followed by one line per
bound parameter.

Examples:
  objgraph translate queries/paintings.yaml
  objgraph translate queries/paintings.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(rootOpts, args[0], cmd)
		},
	}
}

func runTranslate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.Config()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	resolver, err := loadResolver(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSchema, err)
	}
	q, err := loadQuery(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeQuery, err)
	}
	formatter.VerboseLog("Translating %s query for %s", q.EntityName, cfg.Adapter().Name())

	stmt, err := translator.NewSelectTranslator(q, cfg.Adapter(), resolver, cfg.TranslatorOptions()...).CreateSQL()
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeTranslate, err)
	}

	if opts.Format == "json" {
		result := TranslateResult{SQL: stmt.SQL, Params: make([]TranslateParam, len(stmt.Params))}
		for i, p := range stmt.Params {
			result.Params[i] = TranslateParam{Value: p.Value, Type: p.Type.String()}
			if p.Attribute != nil {
				result.Params[i].Column = p.Attribute.Name
			}
		}
		return formatter.Success(result)
	}

	var sb strings.Builder
	sb.WriteString(stmt.SQL)
	for i, p := range stmt.Params {
		fmt.Fprintf(&sb, "\n$%d %s", i+1, p)
	}
	return formatter.Success(sb.String())
}
