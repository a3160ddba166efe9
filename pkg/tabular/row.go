package tabular

import (
	"time"

	"github.com/shapestone/shape-tabular/internal/scanner"
	"github.com/shapestone/shape-tabular/internal/sniff"
)

// Row is one parsed logical row handed to consumers.
type Row struct {
	// Index is the 0-based position of the row within the session's input,
	// monotonically increasing. Consumed header rows and skipped blank lines
	// still advance it, so Index always names the physical row.
	Index uint64

	// Fields holds the field values in column order. Field count may vary
	// row to row; schema enforcement is a downstream concern.
	Fields []string

	// RawLine is the original unparsed text of the row, for audit and debug
	// use.
	RawLine string

	// Metadata carries optional per-row annotations from the format handler.
	// The delimited handler leaves it nil.
	Metadata map[string]string
}

// Error codes recorded in ParseStats.Errors.
const (
	CodeFieldTooLarge      = scanner.CodeFieldTooLarge
	CodeUnterminatedQuote  = scanner.CodeUnterminatedQuote
	CodeFieldCountMismatch = scanner.CodeFieldCountMismatch
)

// RowError is one recorded, non-fatal structural error.
type RowError struct {
	Row     int64
	Column  int
	Code    string
	Message string
}

// ParseStats accumulates over one parsing session.
type ParseStats struct {
	// SessionID correlates the session's rows and errors in audit logs.
	SessionID string

	BytesProcessed int64
	RowsProcessed  int64
	Errors         []RowError

	StartTime time.Time
	EndTime   time.Time
}

func statsFromScanner(s scanner.ParseStats) ParseStats {
	out := ParseStats{
		SessionID:      s.SessionID.String(),
		BytesProcessed: s.BytesProcessed,
		RowsProcessed:  s.RowsProcessed,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
	}
	if len(s.Errors) > 0 {
		out.Errors = make([]RowError, len(s.Errors))
		for i, e := range s.Errors {
			out.Errors[i] = RowError(e)
		}
	}
	return out
}

// DialectResult reports the detected dialect, each facet with its own
// confidence in [0,1].
type DialectResult struct {
	Delimiter           rune
	DelimiterConfidence float64

	Quote           rune
	QuoteConfidence float64

	HasHeader        bool
	HeaderConfidence float64

	// LineEnding is "\n", "\r\n", or "\r".
	LineEnding           string
	LineEndingConfidence float64

	// Columns is the modal field count across the sampled lines.
	Columns int

	// DelimiterScores holds every candidate considered and its score.
	DelimiterScores map[rune]float64
}

func dialectFromSniff(d sniff.DialectResult) DialectResult {
	out := DialectResult{
		Delimiter:            rune(d.Delimiter),
		DelimiterConfidence:  d.DelimiterConfidence,
		Quote:                rune(d.Quote),
		QuoteConfidence:      d.QuoteConfidence,
		HasHeader:            d.HasHeader,
		HeaderConfidence:     d.HeaderConfidence,
		LineEnding:           d.LineEnding,
		LineEndingConfidence: d.LineEndingConfidence,
		Columns:              d.Columns,
	}
	if len(d.DelimiterScores) > 0 {
		out.DelimiterScores = make(map[rune]float64, len(d.DelimiterScores))
		for b, score := range d.DelimiterScores {
			out.DelimiterScores[rune(b)] = score
		}
	}
	return out
}

// EncodingResult reports the detected byte encoding.
type EncodingResult struct {
	Encoding   string
	Confidence float64
	HasBOM     bool
	BOMLength  int
}

func encodingFromSniff(e sniff.EncodingResult) EncodingResult {
	return EncodingResult(e)
}
