// Package tabular reads delimiter-separated text without being told what it
// is. Detection infers the delimiter, quoting, header row, and byte encoding
// from a bounded sample; parsing then streams rows through a chunk-driven
// state machine that produces identical output regardless of how the input
// bytes were split into reads.
//
// Most callers need only the facade:
//
//	rows, err := tabular.Open("data.csv", tabular.DefaultReadOptions())
//	if err != nil {
//		return err
//	}
//	defer rows.Close()
//	for rows.Next() {
//		fmt.Println(rows.Row().Fields)
//	}
//	if err := rows.Err(); err != nil {
//		return err
//	}
//
// Everything detection infers can be pinned down in ReadOptions instead, and
// additional formats can be added to the Registry.
package tabular

import (
	"io"
	"os"
	"strings"

	"github.com/shapestone/shape-tabular/internal/source"
)

// Detect runs format detection over a sample through the default registry
// and returns the winning handler's claim.
func Detect(sample []byte, opts ReadOptions) (FormatDetectionResult, error) {
	if err := opts.Validate(); err != nil {
		return FormatDetectionResult{}, err
	}
	sel, err := DefaultRegistry().GetParser(sample, opts)
	if err != nil {
		return FormatDetectionResult{}, err
	}
	return sel.Detection, nil
}

// DetectFile samples a file and runs detection, using the file extension as
// a tie-break hint. EstimatedRows is scaled from the sample's average line
// length to the full file size.
func DetectFile(path string, opts ReadOptions) (FormatDetectionResult, error) {
	if err := opts.Validate(); err != nil {
		return FormatDetectionResult{}, err
	}

	sample, size, cleanup, err := source.SampleFile(path, opts.sampleSize())
	if err != nil {
		return FormatDetectionResult{}, &SourceError{Path: path, Err: err}
	}
	defer cleanup()

	sel, err := DefaultRegistry().GetParserForPath(path, sample, opts)
	if err != nil {
		return FormatDetectionResult{}, err
	}

	det := sel.Detection
	if det.EstimatedRows > 0 && int64(len(sample)) < size {
		avgLine := float64(len(sample)) / float64(det.EstimatedRows)
		det.EstimatedRows = int64(float64(size) / avgLine)
	}
	return det, nil
}

// Open detects the format of a file and returns a row session over it. The
// session owns the file handle; Close releases it.
func Open(path string, opts ReadOptions) (*Rows, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sample, _, cleanup, err := source.SampleFile(path, opts.sampleSize())
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	if len(sample) == 0 {
		cleanup()
		return nil, &SourceError{
			Path:           path,
			Err:            ErrNoData,
			SuggestedFixes: []string{"check that the file actually contains data"},
		}
	}
	sel, err := DefaultRegistry().GetParserForPath(path, sample, opts)
	cleanup()
	if err != nil {
		return nil, err
	}

	if fp, ok := sel.Handler.(interface {
		ParseFile(string) (*Rows, error)
	}); ok {
		return fp.ParseFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	rows, err := sel.Handler.Parse(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	rows.closer = f
	return rows, nil
}

// ParseReader detects the format of a stream and returns a row session over
// it. The sampled prefix is replayed, so the stream need not be seekable.
func ParseReader(r io.Reader, opts ReadOptions) (*Rows, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sample, rest, err := source.Sample(r, opts.sampleSize())
	if err != nil {
		return nil, &SourceError{Err: err}
	}
	if len(sample) == 0 {
		return nil, &SourceError{
			Err:            ErrNoData,
			SuggestedFixes: []string{"check that the input actually contains data"},
		}
	}
	sel, err := DefaultRegistry().GetParser(sample, opts)
	if err != nil {
		return nil, err
	}
	return sel.Handler.Parse(rest)
}

// ParseString parses in-memory text.
func ParseString(s string, opts ReadOptions) (*Rows, error) {
	return ParseReader(strings.NewReader(s), opts)
}

// ValidateFile samples a file and reports whether it looks parseable,
// without reading past the sample.
func ValidateFile(path string, opts ReadOptions) (ValidationResult, error) {
	if err := opts.Validate(); err != nil {
		return ValidationResult{}, err
	}

	sample, _, cleanup, err := source.SampleFile(path, opts.sampleSize())
	if err != nil {
		return ValidationResult{}, &SourceError{Path: path, Err: err}
	}
	defer cleanup()

	adapter, err := NewDelimitedAdapter(opts)
	if err != nil {
		return ValidationResult{}, err
	}
	return adapter.Validate(sample), nil
}
