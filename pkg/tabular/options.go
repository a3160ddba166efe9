package tabular

import (
	"unicode/utf8"

	"github.com/shapestone/shape-tabular/internal/scanner"
	"github.com/shapestone/shape-tabular/internal/sniff"
	"github.com/shapestone/shape-tabular/internal/source"
)

// Encoding labels accepted by ReadOptions.Encoding.
const (
	EncodingUTF8    = sniff.EncodingUTF8
	EncodingUTF16LE = sniff.EncodingUTF16LE
	EncodingUTF16BE = sniff.EncodingUTF16BE
)

// ReadOptions configures detection and parsing. The zero value of every
// field means "auto": absent values trigger detection from a sample.
type ReadOptions struct {
	// Delimiter is the field delimiter. 0 = auto-detect.
	Delimiter rune

	// Quote is the quote character. 0 = auto-detect.
	Quote rune

	// Escape is the escape character. 0 = same as the quote (doubled-quote
	// escaping).
	Escape rune

	// Encoding forces the byte encoding ("utf-8", "utf-16le", "utf-16be").
	// Empty = auto-detect.
	Encoding string

	// Format names a registered format explicitly, bypassing detection.
	Format string

	// HasHeader forces header handling. nil = auto-detect. When true, the
	// first row is consumed into Headers() instead of being yielded.
	HasHeader *bool

	// TrimFields strips surrounding whitespace from unquoted fields.
	TrimFields bool

	// SkipEmptyLines drops rows produced by blank lines.
	SkipEmptyLines bool

	// MaxRows stops iteration after this many yielded rows. 0 = unlimited.
	MaxRows int64

	// MaxFieldSize is the per-field byte ceiling. 0 = 1 MiB default.
	MaxFieldSize int

	// ChunkSize is the read chunk size in bytes. 0 = 8 KiB default.
	ChunkSize int

	// SampleSize bounds the detection prefix in bytes. 0 = 64 KiB default.
	SampleSize int

	// HeaderConverter transforms header names when a header row is consumed.
	HeaderConverter HeaderConverter

	// Columns restricts which columns each row carries.
	Columns *ColumnSelector
}

// DefaultReadOptions returns the all-auto configuration.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{}
}

// Bool is a convenience for populating HasHeader.
func Bool(v bool) *bool {
	return &v
}

// validDelim reports whether r can serve as a structural character for the
// state machine: a single ASCII byte that is not a line-ending.
func validDelim(r rune) bool {
	return r > 0 && r < 0x80 && r != '\r' && r != '\n' && utf8.ValidRune(r)
}

// Validate checks the options; invalid configuration fails here, before any
// bytes are processed.
func (o ReadOptions) Validate() error {
	if o.Delimiter != 0 && !validDelim(o.Delimiter) {
		return &OptionsError{Field: "Delimiter", Message: "must be a single ASCII character, not CR or LF"}
	}
	if o.Quote != 0 && !validDelim(o.Quote) {
		return &OptionsError{Field: "Quote", Message: "must be a single ASCII character, not CR or LF"}
	}
	if o.Escape != 0 && !validDelim(o.Escape) {
		return &OptionsError{Field: "Escape", Message: "must be a single ASCII character, not CR or LF"}
	}
	if o.Delimiter != 0 && o.Delimiter == o.Quote {
		return &OptionsError{Field: "Quote", Message: "must differ from delimiter"}
	}
	switch o.Encoding {
	case "", EncodingUTF8, EncodingUTF16LE, EncodingUTF16BE:
	default:
		return &OptionsError{Field: "Encoding", Message: "unknown encoding " + o.Encoding}
	}
	if o.MaxRows < 0 {
		return &OptionsError{Field: "MaxRows", Message: "must not be negative"}
	}
	if o.MaxFieldSize < 0 {
		return &OptionsError{Field: "MaxFieldSize", Message: "must not be negative"}
	}
	if o.ChunkSize < 0 {
		return &OptionsError{Field: "ChunkSize", Message: "must not be negative"}
	}
	if o.SampleSize < 0 {
		return &OptionsError{Field: "SampleSize", Message: "must not be negative"}
	}
	return nil
}

// dialect merges explicit options over detected values into the state
// machine's configuration.
func (o ReadOptions) dialect(detected sniff.DialectResult) scanner.Dialect {
	d := scanner.DefaultDialect()

	if o.Delimiter != 0 {
		d.Comma = byte(o.Delimiter)
	} else if detected.Delimiter != 0 {
		d.Comma = detected.Delimiter
	}

	if o.Quote != 0 {
		d.Quote = byte(o.Quote)
	} else if detected.Quote != 0 {
		d.Quote = detected.Quote
	}

	if o.Escape != 0 {
		d.Escape = byte(o.Escape)
	} else {
		d.Escape = d.Quote
	}

	d.TrimFields = o.TrimFields
	if o.MaxFieldSize > 0 {
		d.MaxFieldSize = o.MaxFieldSize
	}
	return d
}

func (o ReadOptions) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return source.DefaultChunkSize
}

func (o ReadOptions) sampleSize() int {
	if o.SampleSize > 0 {
		return o.SampleSize
	}
	return source.DefaultSampleSize
}
