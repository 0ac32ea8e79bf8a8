package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/credwallet/internal/policy"
	"github.com/roach88/credwallet/internal/record"
	"github.com/roach88/credwallet/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation refused (missing record, duplicate id, invalid record, access denied)
	ExitCommandError = 2 // Command error (bad flags or input file, storage unavailable, etc.)
)

// Error codes carried in the JSON error envelope.
const (
	CodeNotFound      = "E001"
	CodeDuplicateKey  = "E002"
	CodeInvalidRecord = "E003"
	CodeDenied        = "E004"
	CodeStorage       = "E005"
	CodeSchemaTooNew  = "E006"
	CodeCommand       = "E007"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// failed wraps a wallet error, picking the exit code from its kind.
func failed(message string, err error) *ExitError {
	code := ExitFailure
	if store.IsUnavailable(err) || errors.Is(err, store.ErrSchemaTooNew) {
		code = ExitCommandError
	}
	return WrapExitError(code, message, err)
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError if the error is not an ExitError; those come from
// flag and argument parsing.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// ErrorCode maps err onto the envelope error code.
func ErrorCode(err error) string {
	switch {
	case store.IsNotFound(err):
		return CodeNotFound
	case store.IsDuplicateKey(err):
		return CodeDuplicateKey
	case errors.Is(err, record.ErrInvalidRecord):
		return CodeInvalidRecord
	case errors.Is(err, policy.ErrDenied):
		return CodeDenied
	case store.IsUnavailable(err):
		return CodeStorage
	case errors.Is(err, store.ErrSchemaTooNew):
		return CodeSchemaTooNew
	default:
		return CodeCommand
	}
}

// errorDetails extracts structured context for the JSON envelope.
func errorDetails(err error) interface{} {
	var ve *record.ValidationError
	if errors.As(err, &ve) {
		return map[string]interface{}{"kind": ve.Kind, "id": ve.ID, "problems": ve.Problems}
	}
	var ke *store.KeyError
	if errors.As(err, &ke) {
		return map[string]interface{}{"collection": ke.Collection, "key": ke.Key}
	}
	var de *policy.DeniedError
	if errors.As(err, &de) {
		return map[string]interface{}{"action": de.Action, "reason": de.Reason}
	}
	return nil
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// In text mode text renders the result; a nil text prints data as-is.
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetEscapeHTML(false)
		return enc.Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	if text == nil {
		fmt.Fprintln(f.Writer, data)
		return nil
	}
	text(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
