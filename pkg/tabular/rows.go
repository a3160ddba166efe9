package tabular

import (
	"fmt"
	"io"

	"github.com/shapestone/shape-tabular/internal/scanner"
	"github.com/shapestone/shape-tabular/internal/source"
)

// Rows is a lazy, one-shot sequence of parsed rows. It is not rewindable
// mid-stream; restart by creating a new parser. Not safe for concurrent use.
//
//	rows, err := tabular.Open("data.csv", tabular.DefaultReadOptions())
//	if err != nil { ... }
//	defer rows.Close()
//	for rows.Next() {
//		row := rows.Row()
//		// process row.Fields
//	}
//	if err := rows.Err(); err != nil { ... }
type Rows struct {
	machine *scanner.Machine
	chunks  *source.ChunkReader
	closer  io.Closer
	opts    ReadOptions

	headers       []string
	headerPending bool

	pending        []scanner.Row
	cur            Row
	expectedFields int
	returned       int64
	err            error
	finalized      bool
	done           bool
}

func newRows(m *scanner.Machine, r io.Reader, closer io.Closer, opts ReadOptions, hasHeader bool) *Rows {
	return &Rows{
		machine:       m,
		chunks:        source.NewChunkReader(r, opts.chunkSize()),
		closer:        closer,
		opts:          opts,
		headerPending: hasHeader,
	}
}

// Next advances to the next row. It returns false at the end of the stream
// or on a source error; check Err afterwards.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	if r.opts.MaxRows > 0 && r.returned >= r.opts.MaxRows {
		r.machine.Abort()
		r.done = true
		return false
	}

	for {
		for len(r.pending) > 0 {
			sr := r.pending[0]
			r.pending = r.pending[1:]
			if row, ok := r.admit(sr); ok {
				r.cur = row
				r.returned++
				return true
			}
		}

		if r.finalized {
			r.done = true
			return false
		}

		chunk, err := r.chunks.Next()
		switch {
		case err == io.EOF:
			r.finalized = true
			if final := r.machine.Finalize(); final != nil {
				r.pending = append(r.pending, *final)
			}
		case err != nil:
			r.err = &SourceError{Err: err}
			r.done = true
			return false
		default:
			r.pending = append(r.pending, r.machine.ProcessChunk(chunk)...)
		}
	}
}

// admit applies the option-level row policies: blank-line skipping, header
// capture, column selection, and the field-count consistency check.
func (r *Rows) admit(sr scanner.Row) (Row, bool) {
	if r.opts.SkipEmptyLines && len(sr.Fields) == 1 && sr.Fields[0] == "" {
		return Row{}, false
	}

	if r.headerPending {
		r.headerPending = false
		r.headers = make([]string, len(sr.Fields))
		for i, name := range sr.Fields {
			if r.opts.HeaderConverter != nil {
				name = r.opts.HeaderConverter(name)
			}
			r.headers[i] = name
		}
		r.expectedFields = len(sr.Fields)
		return Row{}, false
	}

	if r.expectedFields == 0 {
		r.expectedFields = len(sr.Fields)
	} else if len(sr.Fields) != r.expectedFields {
		r.machine.RecordError(scanner.CodeFieldCountMismatch,
			fmt.Sprintf("row %d has %d fields, expected %d", sr.Index, len(sr.Fields), r.expectedFields))
	}

	fields := sr.Fields
	if r.opts.Columns != nil {
		fields = fields[:0:0]
		for i, value := range sr.Fields {
			if r.opts.Columns.ShouldInclude(r.headerName(i), i) {
				fields = append(fields, value)
			}
		}
	}

	return Row{Index: sr.Index, Fields: fields, RawLine: sr.Raw}, true
}

func (r *Rows) headerName(i int) string {
	if i < len(r.headers) {
		return r.headers[i]
	}
	return ""
}

// Row returns the current row. Valid only after Next reported true.
func (r *Rows) Row() Row {
	return r.cur
}

// Headers returns the consumed header row, transformed by the configured
// HeaderConverter. Empty when no header row was consumed.
func (r *Rows) Headers() []string {
	return r.headers
}

// Err returns the source error that stopped iteration, if any. Structural
// row-level problems are not errors here; they accumulate in Stats.
func (r *Rows) Err() error {
	return r.err
}

// Stats returns a snapshot of the session's cumulative statistics.
func (r *Rows) Stats() ParseStats {
	return statsFromScanner(r.machine.Stats())
}

// Abort stops the session cooperatively: iteration ends and further chunks
// are discarded without buffering.
func (r *Rows) Abort() {
	r.machine.Abort()
	r.done = true
}

// Close releases the underlying source. Safe to call after the iteration
// loop regardless of how it ended.
func (r *Rows) Close() error {
	r.done = true
	if r.chunks != nil {
		r.chunks.Close()
		r.chunks = nil
	}
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}
