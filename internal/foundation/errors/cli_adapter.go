package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Process exit codes by category. Unclassified errors exit with 1.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation:  2,
	CategoryNotFound:    4,
	CategoryConfig:      7,
	CategoryFileSystem:  9,
	CategoryInternal:    10,
	CategoryFrontMatter: 11,
	CategoryComposition: 11,
}

// CLIErrorAdapter turns the error a command returned into a message and an
// exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor returns 0 for nil.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	classified, ok := AsClassified(err)
	if !ok {
		return 1
	}
	if code, known := exitCodes[classified.category]; known {
		return code
	}
	return 1
}

// FormatError renders err for the terminal. Internal details are only shown
// with verbose output.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	switch {
	case !ok:
		return fmt.Sprintf("Error: %v", err)
	case a.verbose:
		return classified.Error()
	case classified.category == CategoryInternal:
		return "Internal error occurred (use -v for details)"
	case classified.cause != nil:
		return fmt.Sprintf("Error: %s: %v", classified.message, classified.cause)
	default:
		return "Error: " + classified.message
	}
}

// Report logs err when warranted, prints it to w and returns the exit code.
func (a *CLIErrorAdapter) Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	a.log(err)
	_, _ = fmt.Fprintln(w, a.FormatError(err))
	return a.ExitCodeFor(err)
}

// HandleError reports err on stderr and exits. It returns when err is nil.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	os.Exit(a.Report(os.Stderr, err))
}

// log writes fatal and unclassified errors always, the rest only in
// verbose mode.
func (a *CLIErrorAdapter) log(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	if !a.verbose && classified.severity != SeverityFatal {
		return
	}
	a.logger.LogAttrs(context.Background(), SlogLevel(classified.severity), classified.message, classified.LogAttrs()...)
}

// SlogLevel maps a severity to a log level.
func SlogLevel(severity ErrorSeverity) slog.Level {
	if severity == SeverityWarning {
		return slog.LevelWarn
	}
	return slog.LevelError
}
