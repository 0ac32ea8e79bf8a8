package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/credwallet/internal/store"
)

// StatusResult describes the opened wallet.
type StatusResult struct {
	Database      string       `json:"database"`
	SchemaVersion int          `json:"schema_version"`
	ReadOnly      bool         `json:"read_only"`
	Counts        store.Counts `json:"counts"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show schema version and record counts",
		Long: `Open the wallet database, apply any pending migrations, and report the
schema version together with the number of stored records.

Examples:
  wallet status --db ./wallet.db
  wallet status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session) error {
				version, err := s.store.SchemaVersion(s.ctx)
				if err != nil {
					return failed("failed to read schema version", err)
				}
				counts, err := s.store.Counts(s.ctx)
				if err != nil {
					return failed("failed to count records", err)
				}

				result := StatusResult{
					Database:      opts.Config.Database,
					SchemaVersion: version,
					ReadOnly:      opts.Config.ReadOnly,
					Counts:        counts,
				}
				s.out.VerboseLog("cache holds %d credential(s)", len(s.cache.Credentials()))
				return s.out.Success(result, func(w io.Writer) {
					fmt.Fprintf(w, "Schema version: %d\n", result.SchemaVersion)
					fmt.Fprintf(w, "Read-only:      %t\n", result.ReadOnly)
					fmt.Fprintf(w, "Credentials:    %d\n", counts.Credentials)
					fmt.Fprintf(w, "Proofs:         %d\n", counts.Proofs)
					fmt.Fprintf(w, "Settings:       %d\n", counts.Settings)
				})
			})
		},
	}
}
