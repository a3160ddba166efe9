package scanner

import (
	"time"

	"github.com/google/uuid"
)

// Error codes attached to RowError records.
const (
	// CodeFieldTooLarge marks a field that exceeded Dialect.MaxFieldSize and
	// was truncated.
	CodeFieldTooLarge = "field_too_large"

	// CodeUnterminatedQuote marks a quoted field still open when the stream
	// ended; the buffered content is emitted as-is.
	CodeUnterminatedQuote = "unterminated_quote"

	// CodeFieldCountMismatch marks a row whose field count differs from the
	// expected column count established earlier in the session.
	CodeFieldCountMismatch = "field_count_mismatch"
)

// RowError is one recorded, non-fatal structural error.
type RowError struct {
	// Row is the 0-based index of the row being assembled when the error
	// occurred.
	Row int64

	// Column is the 1-based ordinal of the field being assembled.
	Column int

	// Code is one of the Code* constants.
	Code string

	// Message is a human-readable description.
	Message string
}

// ParseStats accumulates across every ProcessChunk call of one session. It
// is owned exclusively by that session; Reset starts a fresh one.
type ParseStats struct {
	// SessionID correlates this session's rows and errors in downstream
	// audit logs.
	SessionID uuid.UUID

	BytesProcessed int64
	RowsProcessed  int64
	Errors         []RowError

	StartTime time.Time
	EndTime   time.Time
}

func newParseStats() ParseStats {
	return ParseStats{
		SessionID: uuid.New(),
		StartTime: time.Now(),
	}
}
