package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/seqcheck/internal/ir"
)

// Exit codes shared by every command.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // error occurrences, invalid sequence, failed scenario
	ExitCommandError = 2 // bad paths, unreadable input, bad flags
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the code of the first ExitError in err's chain,
// ExitFailure for any other error.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results in the selected format.
// Diagnostics go to ErrWriter so that JSON on Writer stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // defaults to Writer
	Verbose   bool
}

// CLIResponse is the envelope of every JSON result.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError describes a failed command in a CLIResponse.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Respond writes resp as indented JSON, whatever the format.
func (f *OutputFormatter) Respond(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success writes data as an "ok" response, or prints it in text mode.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return f.Respond(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes an "error" response. Text mode prints details only when
// verbose.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return f.Respond(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line in verbose mode.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.diagWriter(), format+"\n", args...)
}

func (f *OutputFormatter) diagWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Styles holds the lipgloss styles of text output.
type Styles struct {
	Title     lipgloss.Style
	Muted     lipgloss.Style
	OK        lipgloss.Style
	Warning   lipgloss.Style
	Undefined lipgloss.Style
	Error     lipgloss.Style
}

// DefaultStyles returns the terminal styles. Colors are dropped
// automatically when the output is not a terminal.
func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		OK:        lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Undefined: lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// StatusBadge renders a status with icon and color, e.g. "✓ ok".
func (s Styles) StatusBadge(status ir.Status) string {
	icon, style := s.statusDescriptor(status)
	return style.Render(fmt.Sprintf("%s %s", icon, status))
}

func (s Styles) statusDescriptor(status ir.Status) (string, lipgloss.Style) {
	switch status {
	case ir.StatusOK:
		return "✓", s.OK
	case ir.StatusWarning:
		return "!", s.Warning
	case ir.StatusUndefined:
		return "?", s.Undefined
	case ir.StatusError:
		return "✗", s.Error
	default:
		return "-", s.Muted
	}
}
