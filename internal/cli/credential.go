package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/credwallet/internal/record"
	"github.com/roach88/credwallet/internal/store"
)

// CredentialListOptions holds flags for the credential list command.
type CredentialListOptions struct {
	*RootOptions
	Issuer string
	From   string
	To     string
}

// NewCredentialCommand creates the credential command group.
func NewCredentialCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credential",
		Aliases: []string{"credentials", "cred"},
		Short:   "Manage stored credentials",
	}

	cmd.AddCommand(newCredentialAddCommand(rootOpts))
	cmd.AddCommand(newCredentialListCommand(rootOpts))
	cmd.AddCommand(newCredentialGetCommand(rootOpts))
	cmd.AddCommand(newCredentialRemoveCommand(rootOpts))

	return cmd
}

func newCredentialAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE",
		Short: "Add a credential from a JSON or YAML file",
		Long: `Add a credential to the wallet.

The file holds one credential as JSON, or YAML when named *.yaml / *.yml.
Use "-" to read JSON from stdin. An empty id is replaced with a generated
UUIDv7.

Exit codes:
  0 - Credential added
  1 - Duplicate id, invalid credential, or access denied
  2 - Command error (unreadable file, database unavailable, etc.)

Examples:
  wallet credential add license.json
  wallet credential add license.yaml --db ./wallet.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := readRecord[record.Credential](args[0], cmd.InOrStdin())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load credential", err)
			}
			if cred.ID == "" {
				cred.ID = record.NewID()
			}

			return withSession(cmd, opts, func(s *session) error {
				if err := s.guard.AddCredential(s.ctx, cred); err != nil {
					return failed("failed to add credential", err)
				}
				return s.out.Success(map[string]string{"id": cred.ID}, func(w io.Writer) {
					fmt.Fprintf(w, "Added credential %s\n", cred.ID)
				})
			})
		},
	}
}

func newCredentialListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CredentialListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List credentials",
		Long: `List credentials in insertion order.

With --issuer, only credentials whose issuer name equals NAME are listed.
The match is exact, including case, except that composed and decomposed
Unicode spellings are equal. With --from / --to, credentials are listed by
issuance time; --from is inclusive and --to exclusive.

Examples:
  wallet credential list
  wallet credential list --issuer "CA DMV"
  wallet credential list --from 2024-01-01 --to 2025-01-01 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Issuer != "" && (opts.From != "" || opts.To != "") {
				return NewExitError(ExitCommandError, "--issuer cannot be combined with --from/--to")
			}
			return withSession(cmd, rootOpts, func(s *session) error {
				creds, err := listCredentials(s, opts)
				if err != nil {
					return failed("failed to list credentials", err)
				}
				return s.out.Success(creds, func(w io.Writer) {
					writeCredentialTable(w, creds)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Issuer, "issuer", "", "only credentials from this issuer")
	cmd.Flags().StringVar(&opts.From, "from", "", "issued at or after this timestamp")
	cmd.Flags().StringVar(&opts.To, "to", "", "issued before this timestamp")

	return cmd
}

func listCredentials(s *session, opts *CredentialListOptions) ([]record.Credential, error) {
	switch {
	case opts.Issuer != "":
		return s.guard.CredentialsByIssuer(s.ctx, opts.Issuer)
	case opts.From != "" || opts.To != "":
		return s.guard.CredentialsIssuedBetween(s.ctx, store.Range{From: opts.From, To: opts.To})
	default:
		return s.guard.Credentials(s.ctx)
	}
}

func newCredentialGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get ID",
		Short:         "Show one credential",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withSession(cmd, opts, func(s *session) error {
				cred, err := s.guard.MustGetCredential(s.ctx, id)
				if err != nil {
					return failed("failed to get credential", err)
				}
				return s.out.Success(cred, func(w io.Writer) {
					writeCredential(w, cred)
				})
			})
		},
	}
}

func newCredentialRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Remove a credential",
		Long: `Remove a credential from the wallet. Removing an unknown id succeeds.

Proofs derived from the credential are kept; see "wallet proof orphans".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withSession(cmd, opts, func(s *session) error {
				if err := s.guard.RemoveCredential(s.ctx, id); err != nil {
					return failed("failed to remove credential", err)
				}
				return s.out.Success(map[string]string{"id": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed credential %s\n", id)
				})
			})
		},
	}
}

func writeCredentialTable(w io.Writer, creds []record.Credential) {
	if len(creds) == 0 {
		fmt.Fprintln(w, "No credentials found.")
		return
	}
	rows := make([][]string, 0, len(creds))
	for _, c := range creds {
		rows = append(rows, []string{c.ID, c.Metadata.IssuerName, c.Metadata.CredentialType, c.IssuedAt})
	}
	writeTable(w, []string{"ID", "ISSUER", "TYPE", "ISSUED AT"}, rows)
}

func writeCredential(w io.Writer, c record.Credential) {
	fmt.Fprintf(w, "ID:         %s\n", c.ID)
	fmt.Fprintf(w, "Issuer:     %s\n", c.Metadata.IssuerName)
	fmt.Fprintf(w, "Type:       %s\n", c.Metadata.CredentialType)
	fmt.Fprintf(w, "Issued at:  %s\n", c.IssuedAt)
	if c.Subject != "" {
		fmt.Fprintf(w, "Subject:    %s\n", c.Subject)
	}
	fmt.Fprintln(w, "Attributes:")
	for _, k := range sortedKeys(c.Attributes) {
		fmt.Fprintf(w, "  %s: %s\n", k, c.Attributes[k])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
