package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// SchemaResult is the payload of the schema subcommands.
type SchemaResult struct {
	Adapter    string   `json:"adapter"`
	Statements []string `json:"statements"`
	Applied    bool     `json:"applied"`
}

// NewSchemaCommand creates the schema command and its subcommands.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Generate or apply the database schema",
		Long: `Generate CREATE TABLE statements for the tables of the data map.

Statements follow the configured adapter, including whatever key
generation support it needs.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "ddl",
		Short:         "Print the schema DDL",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, false, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "create",
		Short:         "Create the schema in the configured database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, true, cmd)
		},
	})

	return cmd
}

func runSchema(opts *RootOptions, apply bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.Config()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	resolver, err := loadResolver(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSchema, err)
	}
	adapter := cfg.Adapter()
	entities := resolver.DbEntities()
	result := SchemaResult{Adapter: adapter.Name(), Statements: adapter.SchemaStatements(entities)}

	if apply {
		st, err := openStore(cfg)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, err)
		}
		defer st.Close()

		if err := st.CreateSchema(cmd.Context(), adapter, entities); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeDatabase, err)
		}
		result.Applied = true
		formatter.VerboseLog("Created %d table(s) in %s", len(entities), cfg.Database.Path)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	if apply {
		return formatter.Success("✓ Schema created")
	}
	return formatter.Success(strings.Join(result.Statements, ";\n") + ";")
}
