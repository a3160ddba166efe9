// Package tabular errors: configuration failures surface at construction,
// source failures carry suggested remedies, and structural row-level
// problems never appear here at all — they accumulate in ParseStats.
package tabular

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrUnsupportedFormat indicates no registered format claimed the input
	// confidently enough, or an explicitly requested format is not
	// registered.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNoData indicates an empty source.
	ErrNoData = errors.New("no data")
)

// OptionsError reports an invalid option configuration.
type OptionsError struct {
	Field   string
	Message string
}

func (e *OptionsError) Error() string {
	return "tabular: invalid " + e.Field + ": " + e.Message
}

// SourceError reports a failure attributable to the input source itself —
// missing file, unreadable permissions, undecodable stream. These are the
// failures that abort an operation, as opposed to recorded row-level errors.
type SourceError struct {
	// Path is the file path, when the source is a file.
	Path string
	// Err is the underlying failure.
	Err error
	// SuggestedFixes are human-readable remedies, when any apply.
	SuggestedFixes []string
}

func (e *SourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("tabular: source %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("tabular: source: %v", e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// UnsupportedFormatError is the typed form of ErrUnsupportedFormat. It
// enumerates the registered formats and suggests remedies.
type UnsupportedFormatError struct {
	// Format is the explicitly requested format, when one was named.
	Format string
	// Supported lists the registered format names.
	Supported []string
	// SuggestedFixes are human-readable remedies.
	SuggestedFixes []string
}

func (e *UnsupportedFormatError) Error() string {
	var b strings.Builder
	if e.Format != "" {
		fmt.Fprintf(&b, "tabular: unsupported format %q", e.Format)
	} else {
		b.WriteString("tabular: could not detect a supported format")
	}
	if len(e.Supported) > 0 {
		fmt.Fprintf(&b, " (supported: %s)", strings.Join(e.Supported, ", "))
	}
	return b.String()
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}
