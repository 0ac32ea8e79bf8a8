package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/credwallet/internal/policy"
	"github.com/roach88/credwallet/internal/store"
	"github.com/roach88/credwallet/internal/wallet"
)

// cliSubject is the acting subject for every command run from the terminal.
var cliSubject = policy.Subject{ID: "cli", Roles: []string{"owner"}}

// session is one opened wallet: store, loaded cache and the guard in front.
type session struct {
	ctx    context.Context
	store  *store.Store
	cache  *wallet.Cache
	guard  *policy.Guard
	logger *slog.Logger
	out    *OutputFormatter
}

// openSession opens the configured store and waits for the cache's initial load.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg := opts.Config
	logger := cfg.NewLogger(cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = policy.WithSubject(ctx, cliSubject)

	var (
		st  *store.Store
		err error
	)
	if cfg.InMemory() {
		st, err = store.OpenInMemory(store.WithLogger(logger))
	} else {
		st, err = store.Open(cfg.Database, store.WithLogger(logger))
	}
	if err != nil {
		return nil, failed("failed to open database", err)
	}

	cache := wallet.New(ctx, st, wallet.WithLogger(logger))
	select {
	case <-cache.Ready():
	case <-ctx.Done():
		st.Close()
		return nil, WrapExitError(ExitCommandError, "interrupted while loading credentials", ctx.Err())
	}

	var p policy.Policy = policy.AllowAll{}
	if cfg.ReadOnly {
		p = policy.ReadOnly{}
	}

	logger.Debug("wallet opened", "database", cfg.Database, "read_only", cfg.ReadOnly)
	return &session{
		ctx:    ctx,
		store:  st,
		cache:  cache,
		guard:  policy.NewGuard(p, cache, st, logger),
		logger: logger,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("failed to close database", "error", err)
	}
}

// withSession runs fn against an opened wallet and closes it afterwards.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(s *session) error) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
