package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/procmigrate/internal/migrate"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	EnvFile    string

	// Deps replaces external systems (for testing). Nil fields use the
	// configured databases.
	Deps *Dependencies
}

// Dependencies overrides the systems a pipeline talks to.
type Dependencies struct {
	Source   migrate.ProcedureSource
	Executor migrate.Executor
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the procmigrate CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "procmigrate",
		Short: "Migrate SQL Server stored procedures to PostgreSQL",
		Long: `procmigrate translates SQL Server stored procedures into PostgreSQL
functions with a chat-completions service, then applies them to the target
database, asking for corrections when PostgreSQL rejects a translation.

Artifacts live in the artifact directory as <schema>.<name>.sql and end up in
accept/, acceptWithGpt/ or decline/. Runs are resumable: complete artifacts
are never regenerated.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "path to .env file (default ./.env when present)")

	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
