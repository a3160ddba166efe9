// Package scanner implements the chunk-resumable row state machine at the
// heart of shape-tabular.
//
// A Machine consumes arbitrary byte chunks and emits complete rows
// incrementally, carrying partial-field and partial-row state across calls.
// Splitting an input at any byte offset — mid-quote, mid-escape-pair, or
// between the CR and LF of a CRLF terminator — yields byte-identical rows to
// feeding the whole input in one call. That is the property this package
// exists to guarantee.
//
// The Machine performs no I/O and is strictly single-threaded: one instance
// per parse session, sequential ProcessChunk calls only. Independent files
// may be parsed concurrently by creating one Machine per file.
package scanner

import (
	"fmt"
	"time"
)

// Dialect is the immutable configuration of a parse session.
type Dialect struct {
	// Comma is the field delimiter.
	Comma byte

	// Quote is the quote character.
	Quote byte

	// Escape is the escape character. When equal to Quote, a doubled quote
	// inside a quoted field produces one literal quote (RFC 4180 style).
	// When distinct, the escape makes the following character literal inside
	// a quoted field.
	Escape byte

	// TrimFields strips leading and trailing whitespace from unquoted field
	// content. Quoted content is preserved verbatim regardless.
	TrimFields bool

	// MaxFieldSize is the byte ceiling for a single field. Exceeding it is a
	// recorded, non-fatal error: the field is truncated and parsing continues.
	MaxFieldSize int
}

// DefaultDialect returns the RFC 4180 defaults: comma-delimited,
// double-quoted, doubled-quote escaping, 1 MiB field ceiling.
func DefaultDialect() Dialect {
	return Dialect{
		Comma:        ',',
		Quote:        '"',
		Escape:       '"',
		MaxFieldSize: 1 << 20,
	}
}

// Validate reports whether the dialect is usable. Delimiter, quote, and
// escape must be distinct single bytes (escape may equal quote), none may be
// a line-ending byte, and the field ceiling must be positive.
func (d Dialect) Validate() error {
	switch {
	case d.Comma == 0:
		return &DialectError{Field: "Comma", Message: "delimiter must not be empty"}
	case d.Comma >= 0x80:
		return &DialectError{Field: "Comma", Message: "delimiter must be a single ASCII byte"}
	case d.Comma == '\r' || d.Comma == '\n':
		return &DialectError{Field: "Comma", Message: "delimiter must not be a line-ending character"}
	}
	switch {
	case d.Quote == 0:
		return &DialectError{Field: "Quote", Message: "quote must not be empty"}
	case d.Quote >= 0x80:
		return &DialectError{Field: "Quote", Message: "quote must be a single ASCII byte"}
	case d.Quote == '\r' || d.Quote == '\n':
		return &DialectError{Field: "Quote", Message: "quote must not be a line-ending character"}
	case d.Quote == d.Comma:
		return &DialectError{Field: "Quote", Message: "quote must differ from delimiter"}
	}
	switch {
	case d.Escape == 0:
		return &DialectError{Field: "Escape", Message: "escape must not be empty"}
	case d.Escape >= 0x80:
		return &DialectError{Field: "Escape", Message: "escape must be a single ASCII byte"}
	case d.Escape == '\r' || d.Escape == '\n':
		return &DialectError{Field: "Escape", Message: "escape must not be a line-ending character"}
	case d.Escape == d.Comma:
		return &DialectError{Field: "Escape", Message: "escape must differ from delimiter"}
	}
	if d.MaxFieldSize <= 0 {
		return &DialectError{Field: "MaxFieldSize", Message: "max field size must be positive"}
	}
	return nil
}

// DialectError reports an invalid dialect configuration.
type DialectError struct {
	Field   string
	Message string
}

func (e *DialectError) Error() string {
	return "scanner: invalid " + e.Field + ": " + e.Message
}

// Row is one complete logical row emitted by the Machine.
type Row struct {
	// Index is the 0-based row number within the session, monotonically
	// increasing.
	Index uint64

	// Fields holds the parsed field values in column order. Field count may
	// vary row to row; no schema is enforced at this layer.
	Fields []string

	// Raw is the original unparsed text of the logical row, without its
	// terminator. Quoted line breaks inside fields are part of the row and
	// are preserved.
	Raw string
}

// charClass buckets input bytes for the transition switch. The table is
// built per machine from the dialect, unlike a package-global table, because
// delimiter, quote, and escape are configurable.
type charClass uint8

const (
	classOther charClass = iota
	classComma
	classQuote
	classEscape
	classCR
	classLF
)

// parserState is the machine's current mode.
type parserState uint8

const (
	// stateFieldStart: at the beginning of a field (start of row included).
	stateFieldStart parserState = iota
	// stateInField: inside an unquoted field.
	stateInField
	// stateInQuoted: inside a quoted field.
	stateInQuoted
	// stateQuoteInQuoted: a quote was seen inside a quoted field; ambiguous
	// between "closing" and "escaped quote" until the next byte resolves it.
	// Only reachable when Escape == Quote.
	stateQuoteInQuoted
	// stateQuotedEscape: an escape was seen inside a quoted field; the next
	// byte is literal. Only reachable when Escape != Quote.
	stateQuotedEscape
)

// Machine is a resumable field/row parser for one parse session.
//
// Not safe for concurrent use. ProcessChunk calls must be sequential;
// Finalize must be called exactly once after the last chunk.
type Machine struct {
	dialect Dialect
	classes [256]charClass

	// SWAR broadcast patterns for the dialect's structural bytes.
	bcComma  uint64
	bcQuote  uint64
	bcEscape uint64

	state       parserState
	field       []byte
	fieldQuoted bool // current field began with a quote
	overflowed  bool // a size error was already recorded for the current field
	row         []string
	rowCap      int // field-count hint from the previous row
	rawLine     []byte
	rowIndex    uint64
	skipLF      bool // a CR terminator was consumed; swallow an immediately following LF
	aborted     bool

	stats ParseStats
}

// New creates a Machine for the given dialect. The dialect is validated
// before any bytes are processed; an invalid dialect fails here, never
// mid-stream.
func New(d Dialect) (*Machine, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		dialect:  d,
		bcComma:  broadcast(d.Comma),
		bcQuote:  broadcast(d.Quote),
		bcEscape: broadcast(d.Escape),
	}
	m.initClasses()
	m.stats = newParseStats()
	return m, nil
}

// initClasses builds the 256-entry classification table from the dialect.
func (m *Machine) initClasses() {
	for i := range m.classes {
		m.classes[i] = classOther
	}
	m.classes['\r'] = classCR
	m.classes['\n'] = classLF
	m.classes[m.dialect.Comma] = classComma
	m.classes[m.dialect.Quote] = classQuote
	if m.dialect.Escape != m.dialect.Quote {
		m.classes[m.dialect.Escape] = classEscape
	}
}

// Dialect returns the session's configuration.
func (m *Machine) Dialect() Dialect {
	return m.dialect
}

// Stats returns a snapshot of the cumulative session statistics.
func (m *Machine) Stats() ParseStats {
	s := m.stats
	s.Errors = append([]RowError(nil), m.stats.Errors...)
	return s
}

// RecordError appends a structural error to the session statistics. Callers
// layering row-level validations (field-count checks and the like) on the
// same session record through here so one ParseStats covers the session.
func (m *Machine) RecordError(code, message string) {
	m.stats.Errors = append(m.stats.Errors, RowError{
		Row:     int64(m.rowIndex),
		Column:  len(m.row) + 1,
		Code:    code,
		Message: message,
	})
}

// Abort sets a one-way flag: subsequent ProcessChunk calls return
// immediately with no rows and no further buffering. Supports cooperative
// cancellation from an outer timeout without destroying the machine
// mid-stream.
func (m *Machine) Abort() {
	m.aborted = true
}

// Aborted reports whether Abort has been called.
func (m *Machine) Aborted() bool {
	return m.aborted
}

// Reset clears row/column counters, pending buffers, and statistics, keeping
// the dialect. The machine begins a fresh session with a new session ID.
func (m *Machine) Reset() {
	m.state = stateFieldStart
	m.field = m.field[:0]
	m.fieldQuoted = false
	m.overflowed = false
	m.row = nil
	m.rowCap = 0
	m.rawLine = m.rawLine[:0]
	m.rowIndex = 0
	m.skipLF = false
	m.aborted = false
	m.stats = newParseStats()
}

// ProcessChunk consumes one chunk and returns the complete rows it closed.
// State for an in-progress row or field persists until the next call.
func (m *Machine) ProcessChunk(chunk []byte) []Row {
	if m.aborted {
		return nil
	}
	m.stats.BytesProcessed += int64(len(chunk))

	var rows []Row
	i := 0
	n := len(chunk)

	for i < n {
		c := chunk[i]

		// Second half of a CRLF terminator, possibly from the previous chunk.
		if m.skipLF {
			m.skipLF = false
			if c == '\n' {
				i++
				continue
			}
		}

		// Bulk-scan runs of plain content before falling back to the
		// byte-at-a-time transition switch.
		switch m.state {
		case stateInField:
			if run := m.unquotedRun(chunk[i:]); run > 0 {
				m.appendFieldBytes(chunk[i : i+run])
				m.rawLine = append(m.rawLine, chunk[i:i+run]...)
				i += run
				continue
			}
		case stateInQuoted:
			if run := m.quotedRun(chunk[i:]); run > 0 {
				m.appendFieldBytes(chunk[i : i+run])
				m.rawLine = append(m.rawLine, chunk[i:i+run]...)
				i += run
				continue
			}
		}

		class := m.classes[c]

		switch m.state {
		case stateFieldStart:
			switch class {
			case classQuote:
				// Begin a quoted field; the quote itself is discarded.
				m.state = stateInQuoted
				m.fieldQuoted = true
				m.rawLine = append(m.rawLine, c)
			case classComma:
				m.endField()
				m.rawLine = append(m.rawLine, c)
			case classCR, classLF:
				m.endField()
				rows = append(rows, m.endRow())
				m.skipLF = class == classCR
			default:
				m.state = stateInField
				m.appendFieldByte(c)
				m.rawLine = append(m.rawLine, c)
			}

		case stateInField:
			switch class {
			case classComma:
				m.endField()
				m.state = stateFieldStart
				m.rawLine = append(m.rawLine, c)
			case classCR, classLF:
				m.endField()
				rows = append(rows, m.endRow())
				m.state = stateFieldStart
				m.skipLF = class == classCR
			default:
				// Quotes and escapes inside an unquoted field are literal.
				m.appendFieldByte(c)
				m.rawLine = append(m.rawLine, c)
			}

		case stateInQuoted:
			switch class {
			case classQuote:
				m.state = stateQuoteInQuoted
				m.rawLine = append(m.rawLine, c)
			case classEscape:
				m.state = stateQuotedEscape
				m.rawLine = append(m.rawLine, c)
			default:
				// Embedded delimiters and line breaks are data.
				m.appendFieldByte(c)
				m.rawLine = append(m.rawLine, c)
			}

		case stateQuoteInQuoted:
			switch {
			case class == classQuote && m.dialect.Escape == m.dialect.Quote:
				// Doubled quote: one literal quote, still inside the field.
				m.appendFieldByte(m.dialect.Quote)
				m.state = stateInQuoted
				m.rawLine = append(m.rawLine, c)
			case class == classComma:
				m.endField()
				m.state = stateFieldStart
				m.rawLine = append(m.rawLine, c)
			case class == classCR || class == classLF:
				m.endField()
				rows = append(rows, m.endRow())
				m.state = stateFieldStart
				m.skipLF = class == classCR
			default:
				// Malformed input: the quote was a genuine close and stray
				// content follows. Emit the quoted field and start a new
				// unquoted field with this byte rather than failing.
				m.endField()
				m.state = stateInField
				m.appendFieldByte(c)
				m.rawLine = append(m.rawLine, c)
			}

		case stateQuotedEscape:
			m.appendFieldByte(c)
			m.state = stateInQuoted
			m.rawLine = append(m.rawLine, c)
		}

		i++
	}

	return rows
}

// Finalize flushes the session after the last chunk. It returns the pending
// row if the stream ended without a trailing terminator, or nil when nothing
// is buffered. A quoted field left open at end of stream is recorded as an
// error and returned as buffered; malformed input degrades, it does not
// abort the file.
func (m *Machine) Finalize() *Row {
	m.stats.EndTime = time.Now()
	if m.aborted {
		return nil
	}

	switch m.state {
	case stateFieldStart:
		if len(m.row) == 0 && len(m.field) == 0 && len(m.rawLine) == 0 {
			return nil
		}
		// A trailing delimiter left an empty pending field.
		m.endField()
	case stateInField, stateQuoteInQuoted:
		m.endField()
	case stateInQuoted, stateQuotedEscape:
		m.RecordError(CodeUnterminatedQuote, "quoted field not closed before end of stream")
		m.endField()
	}

	row := m.endRow()
	m.state = stateFieldStart
	return &row
}

// endField completes the current field buffer into the pending row.
func (m *Machine) endField() {
	s := string(m.field)
	if m.dialect.TrimFields && !m.fieldQuoted {
		s = trimASCIISpace(s)
	}
	if m.row == nil {
		m.row = make([]string, 0, max(m.rowCap, 1))
	}
	m.row = append(m.row, s)
	m.field = m.field[:0]
	m.fieldQuoted = false
	m.overflowed = false
}

// endRow completes the pending row.
func (m *Machine) endRow() Row {
	row := Row{
		Index:  m.rowIndex,
		Fields: m.row,
		Raw:    string(m.rawLine),
	}
	if row.Fields == nil {
		row.Fields = []string{}
	}
	m.rowCap = len(m.row)
	m.row = nil
	m.rawLine = m.rawLine[:0]
	m.rowIndex++
	m.stats.RowsProcessed++
	return row
}

// appendFieldByte appends one byte to the field buffer, enforcing the field
// ceiling. The violation is recorded once per field; the overflow itself is
// dropped and parsing continues.
func (m *Machine) appendFieldByte(c byte) {
	if len(m.field) >= m.dialect.MaxFieldSize {
		m.recordOverflow()
		return
	}
	m.field = append(m.field, c)
}

// appendFieldBytes is the bulk counterpart of appendFieldByte.
func (m *Machine) appendFieldBytes(b []byte) {
	room := m.dialect.MaxFieldSize - len(m.field)
	if room <= 0 {
		m.recordOverflow()
		return
	}
	if len(b) > room {
		m.field = append(m.field, b[:room]...)
		m.recordOverflow()
		return
	}
	m.field = append(m.field, b...)
}

func (m *Machine) recordOverflow() {
	if m.overflowed {
		return
	}
	m.overflowed = true
	m.RecordError(CodeFieldTooLarge,
		fmt.Sprintf("field exceeds maximum size of %d bytes; truncated", m.dialect.MaxFieldSize))
}

// trimASCIISpace strips leading/trailing spaces and tabs. Narrower than
// strings.TrimSpace on purpose: CR and LF never reach field content in
// unquoted fields, and Unicode spaces in raw tabular data are content.
func trimASCIISpace(s string) string {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
