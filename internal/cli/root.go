package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/credwallet/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string
	ConfigPath string
	LogLevel   string
	ReadOnly   bool

	// Config is resolved in PersistentPreRunE: file values, then explicit flags.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.Formats

// NewRootCommand creates the root command for the wallet CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Local verifiable-credential wallet",
		Long: `Manage the verifiable credentials, proofs and settings held in a local
wallet database.

Records are stored in SQLite; reads of the credential list go through the
wallet's reactive cache, which is refreshed after every change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return resolveConfig(cmd, opts)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Database, "db", "wallet.db", "path to SQLite database (:memory: for a throwaway wallet)")
	flags.StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	flags.BoolVar(&opts.ReadOnly, "read-only", false, "reject every command that changes the wallet")

	// Add subcommands
	cmd.AddCommand(NewCredentialCommand(opts))
	cmd.AddCommand(NewProofCommand(opts))
	cmd.AddCommand(NewSettingCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// resolveConfig loads the config file and lets explicitly set flags win.
func resolveConfig(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = opts.Database
	}
	if flags.Changed("format") {
		cfg.Format = opts.Format
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if flags.Changed("read-only") {
		cfg.ReadOnly = opts.ReadOnly
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	if !isValidFormat(cfg.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", cfg.Format, ValidFormats))
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	opts.Format = cfg.Format
	opts.Config = cfg
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
