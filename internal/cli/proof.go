package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/credwallet/internal/policy"
	"github.com/roach88/credwallet/internal/record"
)

// ProofListOptions holds flags for the proof list command.
type ProofListOptions struct {
	*RootOptions
	CredentialID string
	VerifierID   string
	From         string
	To           string
}

// ProofOrphansOptions holds flags for the proof orphans command.
type ProofOrphansOptions struct {
	*RootOptions
	Prune bool
}

// PruneResult reports how many orphaned proofs were deleted.
type PruneResult struct {
	Pruned int64 `json:"pruned"`
}

// NewProofCommand creates the proof command group.
func NewProofCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "proof",
		Aliases: []string{"proofs"},
		Short:   "Manage stored proofs",
	}

	cmd.AddCommand(newProofAddCommand(rootOpts))
	cmd.AddCommand(newProofGetCommand(rootOpts))
	cmd.AddCommand(newProofListCommand(rootOpts))
	cmd.AddCommand(newProofRemoveCommand(rootOpts))
	cmd.AddCommand(newProofOrphansCommand(rootOpts))

	return cmd
}

func newProofAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE",
		Short: "Record a proof from a JSON or YAML file",
		Long: `Record a generated proof.

The referenced credential does not have to exist. An empty id is replaced
with a generated UUIDv7.

Examples:
  wallet proof add proof.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readRecord[record.Proof](args[0], cmd.InOrStdin())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load proof", err)
			}
			if p.ID == "" {
				p.ID = record.NewID()
			}

			return withSession(cmd, opts, func(s *session) error {
				if err := s.guard.PutProof(s.ctx, p); err != nil {
					return failed("failed to add proof", err)
				}
				return s.out.Success(map[string]string{"id": p.ID}, func(w io.Writer) {
					fmt.Fprintf(w, "Added proof %s\n", p.ID)
				})
			})
		},
	}
}

func newProofGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get ID",
		Short:         "Show one proof",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withSession(cmd, opts, func(s *session) error {
				p, err := s.guard.MustGetProof(s.ctx, id)
				if err != nil {
					return failed("failed to get proof", err)
				}
				return s.out.Success(p, func(w io.Writer) {
					writeProof(w, p)
				})
			})
		},
	}
}

func newProofListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProofListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proofs",
		Long: `List proofs in insertion order, optionally only those derived from one
credential or presented to one verifier.

With --from / --to, proofs are listed by timestamp; --from is inclusive and
--to exclusive.

Examples:
  wallet proof list
  wallet proof list --credential 0192c4e0-...
  wallet proof list --verifier bar-42 --format json
  wallet proof list --from 2024-01-01 --to 2024-07-01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.CredentialID != "" && opts.VerifierID != "" {
				return NewExitError(ExitCommandError, "--credential cannot be combined with --verifier")
			}
			if (opts.CredentialID != "" || opts.VerifierID != "") && (opts.From != "" || opts.To != "") {
				return NewExitError(ExitCommandError, "--credential/--verifier cannot be combined with --from/--to")
			}
			return withSession(cmd, rootOpts, func(s *session) error {
				proofs, err := s.guard.ListProofs(s.ctx, policy.ProofFilter{
					CredentialID: opts.CredentialID,
					VerifierID:   opts.VerifierID,
					From:         opts.From,
					To:           opts.To,
				})
				if err != nil {
					return failed("failed to list proofs", err)
				}
				return s.out.Success(proofs, func(w io.Writer) {
					writeProofTable(w, proofs, "No proofs found.")
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.CredentialID, "credential", "", "only proofs derived from this credential")
	cmd.Flags().StringVar(&opts.VerifierID, "verifier", "", "only proofs presented to this verifier")
	cmd.Flags().StringVar(&opts.From, "from", "", "presented at or after this timestamp")
	cmd.Flags().StringVar(&opts.To, "to", "", "presented before this timestamp")

	return cmd
}

func newProofRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Delete a proof",
		Long: `Delete a proof. Removing an unknown id succeeds.

Examples:
  wallet proof remove 0192c4e1-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withSession(cmd, opts, func(s *session) error {
				if err := s.guard.DeleteProof(s.ctx, id); err != nil {
					return failed("failed to remove proof", err)
				}
				return s.out.Success(map[string]string{"id": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed proof %s\n", id)
				})
			})
		},
	}
}

func newProofOrphansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProofOrphansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List or prune proofs whose credential was removed",
		Long: `Proofs outlive the credential they were derived from. This command lists
those orphaned proofs, or deletes them with --prune.

Examples:
  wallet proof orphans
  wallet proof orphans --prune`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				if opts.Prune {
					n, err := s.guard.PruneOrphanedProofs(s.ctx)
					if err != nil {
						return failed("failed to prune orphaned proofs", err)
					}
					return s.out.Success(PruneResult{Pruned: n}, func(w io.Writer) {
						fmt.Fprintf(w, "Pruned %d orphaned proof(s)\n", n)
					})
				}

				proofs, err := s.guard.OrphanedProofs(s.ctx)
				if err != nil {
					return failed("failed to list orphaned proofs", err)
				}
				return s.out.Success(proofs, func(w io.Writer) {
					writeProofTable(w, proofs, "No orphaned proofs.")
				})
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "delete the orphaned proofs")

	return cmd
}

func writeProofTable(w io.Writer, proofs []record.Proof, empty string) {
	if len(proofs) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	rows := make([][]string, 0, len(proofs))
	for _, p := range proofs {
		rows = append(rows, []string{p.ID, p.CredentialID, p.VerifierID, p.Predicate, verifiedLabel(p.Verified), p.Timestamp})
	}
	writeTable(w, []string{"ID", "CREDENTIAL", "VERIFIER", "PREDICATE", "VERIFIED", "TIMESTAMP"}, rows)
}

func writeProof(w io.Writer, p record.Proof) {
	fmt.Fprintf(w, "ID:          %s\n", p.ID)
	fmt.Fprintf(w, "Credential:  %s\n", p.CredentialID)
	fmt.Fprintf(w, "Verifier:    %s\n", p.VerifierID)
	fmt.Fprintf(w, "Predicate:   %s\n", p.Predicate)
	fmt.Fprintf(w, "Verified:    %s\n", verifiedLabel(p.Verified))
	fmt.Fprintf(w, "Timestamp:   %s\n", p.Timestamp)
	if len(p.Revealed) > 0 {
		fmt.Fprintln(w, "Revealed:")
		for _, k := range sortedKeys(p.Revealed) {
			fmt.Fprintf(w, "  %s: %v\n", k, p.Revealed[k])
		}
	}
}

func verifiedLabel(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
