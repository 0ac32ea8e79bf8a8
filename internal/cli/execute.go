package cli

import (
	"context"
	"io"
)

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported on stdout as a JSON envelope in json mode and on
// stderr otherwise.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	f := &OutputFormatter{Format: "text", Writer: stderr, Verbose: opts.Verbose}
	if opts.Format == "json" {
		f.Format = "json"
		f.Writer = stdout
	}
	_ = f.Error(ErrorCode(err), err.Error(), errorDetails(err))
	return GetExitCode(err)
}
