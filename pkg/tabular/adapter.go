package tabular

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/shapestone/shape-tabular/internal/scanner"
	"github.com/shapestone/shape-tabular/internal/sniff"
	"github.com/shapestone/shape-tabular/internal/source"
)

// FormatDelimited is the name of the built-in delimited-text handler.
const FormatDelimited = "delimited"

// FormatDetectionResult is a handler's claim on a sample.
type FormatDetectionResult struct {
	// Format is the reporting handler's name.
	Format string

	// Confidence in [0,1] that this handler should parse the input.
	Confidence float64

	Dialect  DialectResult
	Encoding EncodingResult

	// EstimatedRows extrapolates the row count; 0 when unknown.
	EstimatedRows int64

	// EstimatedColumns is the modal field count across the sampled rows; 0
	// when unknown.
	EstimatedColumns int

	// Metadata carries raw supporting facts behind the claim.
	Metadata map[string]string
}

// ValidationResult reports whether a sample looks parseable without parsing
// all of it.
type ValidationResult struct {
	// Valid means parsing is expected to succeed.
	Valid bool

	// CanProceed reports whether parsing is worth attempting at all; false
	// only when confidence falls below the acceptance floor.
	CanProceed bool

	Confidence float64
	Dialect    DialectResult
	Encoding   EncodingResult

	// Warnings note detection signals weak enough to deserve attention even
	// when Valid is true.
	Warnings []string

	// SuggestedFixes are remedies for inputs that failed validation.
	SuggestedFixes []string
}

// DelimitedAdapter parses delimiter-separated text (CSV, TSV, and friends).
// It detects whatever its options leave unspecified from a bounded sample,
// then streams the input through the row state machine.
type DelimitedAdapter struct {
	opts ReadOptions
}

// NewDelimitedAdapter validates the options and returns the handler.
func NewDelimitedAdapter(opts ReadOptions) (*DelimitedAdapter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &DelimitedAdapter{opts: opts}, nil
}

// Format returns FormatDelimited.
func (a *DelimitedAdapter) Format() string {
	return FormatDelimited
}

// Detect reports how confidently the sample reads as delimited text. The
// confidence combines the delimiter signal with the encoding signal, so
// undecodable bytes drag the claim down even when delimiters line up.
func (a *DelimitedAdapter) Detect(sample []byte) FormatDetectionResult {
	if len(sample) == 0 {
		return FormatDetectionResult{Format: FormatDelimited}
	}

	enc := a.encodingFor(sample)
	decoded := decodeSample(sample, enc)
	dial := sniff.DetectDialect(decoded)

	return FormatDetectionResult{
		Format:           FormatDelimited,
		Confidence:       dial.DelimiterConfidence * enc.Confidence,
		Dialect:          dialectFromSniff(dial),
		Encoding:         enc,
		EstimatedRows:    int64(countLines(decoded)),
		EstimatedColumns: dial.Columns,
		Metadata: map[string]string{
			"sample_bytes": strconv.Itoa(len(sample)),
			"line_ending":  strconv.Quote(dial.LineEnding),
			"has_bom":      strconv.FormatBool(enc.HasBOM),
		},
	}
}

// Validate checks a sample without building a parser. Confidence at or above
// 0.8 is a clean pass; between 0.5 and 0.8 the sample passes with warnings;
// below 0.5 it fails, parsing should not proceed, and remedies are suggested.
func (a *DelimitedAdapter) Validate(sample []byte) ValidationResult {
	det := a.Detect(sample)
	res := ValidationResult{
		Confidence: det.Confidence,
		Dialect:    det.Dialect,
		Encoding:   det.Encoding,
	}

	if len(sample) == 0 {
		res.Warnings = append(res.Warnings, "input is empty")
		res.SuggestedFixes = append(res.SuggestedFixes, "check that the input actually contains data")
		return res
	}

	res.Valid = det.Confidence >= acceptanceFloor
	res.CanProceed = res.Valid

	if !res.Valid {
		res.SuggestedFixes = append(res.SuggestedFixes,
			"specify the delimiter explicitly",
			"specify the encoding explicitly",
			"check that the input is delimited text, not prose or a binary file",
		)
	}
	if det.Confidence < 0.8 {
		if det.Dialect.DelimiterConfidence < 0.8 {
			res.Warnings = append(res.Warnings, "delimiter structure is inconsistent across sampled rows")
		}
		if det.Encoding.Confidence < 0.8 {
			res.Warnings = append(res.Warnings, "byte encoding is uncertain; consider setting Encoding explicitly")
		}
	}
	return res
}

// Parse samples the reader for detection, then streams the remainder through
// a fresh parsing session. The reader is consumed exactly once.
func (a *DelimitedAdapter) Parse(r io.Reader) (*Rows, error) {
	return a.parse(r, nil, "")
}

// ParseFile opens and parses a file.
func (a *DelimitedAdapter) ParseFile(path string) (*Rows, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{
			Path: path,
			Err:  err,
			SuggestedFixes: []string{
				"check that the file exists and the path is spelled correctly",
				"check read permissions on the file",
			},
		}
	}

	rows, err := a.parse(f, f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rows, nil
}

func (a *DelimitedAdapter) parse(r io.Reader, closer io.Closer, path string) (*Rows, error) {
	sample, rest, err := source.Sample(r, a.opts.sampleSize())
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}

	enc := a.encodingFor(sample)
	decoded := decodeSample(sample, enc)
	dial := sniff.DetectDialect(decoded)

	machine, err := scanner.New(a.opts.dialect(dial))
	if err != nil {
		return nil, err
	}

	hasHeader := dial.HasHeader
	if a.opts.HasHeader != nil {
		hasHeader = *a.opts.HasHeader
	}

	stream, err := decodedReader(rest, enc)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return newRows(machine, stream, closer, a.opts, hasHeader), nil
}

// encodingFor resolves the session encoding: an explicit option wins, but the
// BOM is still consulted so it can be stripped before parsing.
func (a *DelimitedAdapter) encodingFor(sample []byte) EncodingResult {
	detected := encodingFromSniff(sniff.DetectEncoding(sample))
	if a.opts.Encoding == "" {
		return detected
	}

	forced := EncodingResult{Encoding: a.opts.Encoding, Confidence: 1.0}
	if detected.HasBOM && sameEncodingFamily(detected.Encoding, a.opts.Encoding) {
		forced.HasBOM = true
		forced.BOMLength = detected.BOMLength
	}
	return forced
}

func sameEncodingFamily(a, b string) bool {
	if a == b {
		return true
	}
	return a != EncodingUTF8 && b != EncodingUTF8
}

// decodeSample converts a detection sample to BOM-free UTF-8 bytes.
func decodeSample(sample []byte, enc EncodingResult) []byte {
	switch enc.Encoding {
	case EncodingUTF16LE, EncodingUTF16BE:
		// A sample can end mid code unit; keep whatever decoded cleanly.
		decoded, _ := utf16Decoder(enc).Bytes(sample)
		return decoded
	default:
		return sample[enc.BOMLength:]
	}
}

// decodedReader wraps the full input stream so the state machine always sees
// BOM-free UTF-8 bytes.
func decodedReader(r io.Reader, enc EncodingResult) (io.Reader, error) {
	switch enc.Encoding {
	case EncodingUTF16LE, EncodingUTF16BE:
		return transform.NewReader(r, utf16Decoder(enc)), nil
	default:
		if enc.BOMLength > 0 {
			if _, err := io.CopyN(io.Discard, r, int64(enc.BOMLength)); err != nil {
				return nil, fmt.Errorf("skipping byte-order mark: %w", err)
			}
		}
		return r, nil
	}
}

// utf16Decoder builds the stream decoder for a UTF-16 result. With a BOM the
// decoder honors it, which also resolves big-endian input reported under the
// little-endian label.
func utf16Decoder(enc EncodingResult) *encoding.Decoder {
	endianness := unicode.LittleEndian
	if enc.Encoding == EncodingUTF16BE {
		endianness = unicode.BigEndian
	}
	policy := unicode.IgnoreBOM
	if enc.HasBOM {
		policy = unicode.UseBOM
	}
	return unicode.UTF16(endianness, policy).NewDecoder()
}

func countLines(sample []byte) int {
	n := bytes.Count(sample, []byte{'\n'})
	if len(sample) > 0 && sample[len(sample)-1] != '\n' {
		n++
	}
	return n
}
