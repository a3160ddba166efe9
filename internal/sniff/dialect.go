// Package sniff infers the dialect and byte encoding of tabular text from a
// bounded sample. Every detected value carries an independent confidence in
// [0,1]: a score of how strongly the evidence supports it, not a
// probability. Detection is a pure function of the sample; no state is kept.
package sniff

import (
	"regexp"
	"strings"
	"unicode"
)

// Line-ending styles reported by DetectDialect.
const (
	LineEndingLF   = "\n"
	LineEndingCRLF = "\r\n"
	LineEndingCR   = "\r"
)

// delimiterCandidates in fixed priority order. Ties in score resolve to the
// earlier candidate; behavioral compatibility depends on this exact order.
var delimiterCandidates = []byte{',', ';', '\t', '|'}

var quoteCandidates = []byte{'"', '\''}

// DialectResult reports each detected dialect facet with its own confidence,
// plus the raw per-candidate delimiter scores for diagnostics.
type DialectResult struct {
	Delimiter           byte
	DelimiterConfidence float64

	Quote           byte
	QuoteConfidence float64

	HasHeader        bool
	HeaderConfidence float64

	LineEnding           string
	LineEndingConfidence float64

	// Columns is the modal field count the detected delimiter produces
	// across the sampled lines.
	Columns int

	// DelimiterScores holds the score of every candidate considered.
	DelimiterScores map[byte]float64
}

// DetectDialect infers delimiter, quote character, header presence, and
// line-ending style from a leading sample of the input.
func DetectDialect(sample []byte) DialectResult {
	lines := sampleLines(sample)

	result := DialectResult{}
	result.Delimiter, result.DelimiterConfidence, result.DelimiterScores = detectDelimiter(lines)
	result.Columns = modalFieldCount(lines, result.Delimiter)
	result.Quote, result.QuoteConfidence = detectQuote(lines, result.Delimiter)
	result.HasHeader, result.HeaderConfidence = detectHeader(lines, result.Delimiter)
	result.LineEnding, result.LineEndingConfidence = detectLineEnding(sample)
	return result
}

// sampleLines splits the sample into non-empty lines. A naive split is
// sufficient here: detection operates on a leading sample, not the full
// structured parse. Files using bare CR terminators are split on CR.
func sampleLines(sample []byte) []string {
	text := string(sample)
	if !strings.ContainsRune(text, '\n') && strings.ContainsRune(text, '\r') {
		text = strings.ReplaceAll(text, "\r", "\n")
	}

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// detectDelimiter scores each candidate by how consistently it splits the
// sample. Consistency (the fraction of lines sharing the modal field count)
// dominates; the modal field count itself is a weak tie-break signal only.
func detectDelimiter(lines []string) (byte, float64, map[byte]float64) {
	scores := make(map[byte]float64, len(delimiterCandidates))

	if len(lines) < 2 {
		// Degenerate sample: nothing to be consistent across.
		for _, d := range delimiterCandidates {
			scores[d] = 0.0
		}
		if len(lines) == 1 {
			for _, d := range delimiterCandidates {
				if strings.Count(lines[0], string(d)) > 0 {
					scores[d] = 0.5
				}
			}
		}
		best := byte(',')
		return best, scores[best], scores
	}

	for _, d := range delimiterCandidates {
		scores[d] = scoreDelimiter(lines, d)
	}

	best := delimiterCandidates[0]
	for _, d := range delimiterCandidates[1:] {
		if scores[d] > scores[best] {
			best = d
		}
	}
	return best, scores[best], scores
}

func scoreDelimiter(lines []string, delim byte) float64 {
	counts := make(map[int]int, 4)
	for _, line := range lines {
		fields := strings.Count(line, string(delim)) + 1
		counts[fields]++
	}

	modal, modalFreq := 0, 0
	for fields, freq := range counts {
		if freq > modalFreq || (freq == modalFreq && fields > modal) {
			modal, modalFreq = fields, freq
		}
	}

	// A delimiter that never appears splits every line into one "field"
	// with perfect consistency; that is absence of structure, not evidence.
	if modal < 2 {
		return 0.15
	}

	consistency := float64(modalFreq) / float64(len(lines))
	columns := float64(modal-1) / 9.0
	if columns > 1 {
		columns = 1
	}
	return consistency*0.85 + columns*0.15
}

// modalFieldCount returns the most common field count the delimiter yields
// across the lines, 0 for an empty sample.
func modalFieldCount(lines []string, delim byte) int {
	if len(lines) == 0 {
		return 0
	}
	counts := make(map[int]int, 4)
	for _, line := range lines {
		counts[strings.Count(line, string(delim))+1]++
	}
	modal, freq := 0, 0
	for fields, f := range counts {
		if f > freq || (f == freq && fields > modal) {
			modal, freq = fields, f
		}
	}
	return modal
}

// detectQuote scores candidates by the fraction of delimiter-adjacent tokens
// fully wrapped in the candidate, with doubled-quote escapes as supporting
// evidence. Absent evidence it defaults to a double quote, below 0.5.
func detectQuote(lines []string, delim byte) (byte, float64) {
	best := byte('"')
	bestConf := 0.3

	for _, q := range quoteCandidates {
		wrapped, total := 0, 0
		for _, line := range lines {
			for _, token := range strings.Split(line, string(delim)) {
				token = strings.TrimSpace(token)
				if token == "" {
					continue
				}
				total++
				if len(token) >= 2 && token[0] == q && token[len(token)-1] == q {
					wrapped++
				}
			}
		}
		if wrapped == 0 || total == 0 {
			continue
		}

		conf := 0.5 + 0.45*(float64(wrapped)/float64(total))
		doubled := string([]byte{q, q})
		for _, line := range lines {
			if strings.Contains(line, doubled) {
				conf += 0.04
				break
			}
		}
		if conf > 0.99 {
			conf = 0.99
		}
		if conf > bestConf {
			best, bestConf = q, conf
		}
	}

	return best, bestConf
}

// headerShapePatterns match common header spellings: identifiers,
// snake_case, camelCase, Title Case.
var headerShapePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`),
	regexp.MustCompile(`^[a-z]+(?:[A-Z][a-zA-Z0-9]*)+$`),
	regexp.MustCompile(`^[A-Z][a-z]+(?: [A-Z][a-z]+)*$`),
}

// headerWords are tokens that show up as column names far more often than
// as data.
var headerWords = map[string]bool{
	"id": true, "name": true, "date": true, "time": true, "type": true,
	"key": true, "value": true, "count": true, "total": true, "status": true,
	"label": true, "code": true, "description": true, "email": true,
	"amount": true, "price": true, "age": true, "city": true, "country": true,
}

// detectHeader compares row 0 against subsequent rows. Boolean and
// confidence are independent outputs: a column-count mismatch means header
// detection is unreliable, which is low confidence, not merely "no header".
func detectHeader(lines []string, delim byte) (bool, float64) {
	if len(lines) < 2 {
		return false, 0.4
	}

	first := splitQuoteAware(lines[0], delim)
	data := make([][]string, 0, 5)
	for _, line := range lines[1:] {
		data = append(data, splitQuoteAware(line, delim))
		if len(data) == 5 {
			break
		}
	}
	if len(first) == 0 || len(data) == 0 {
		return false, 0.4
	}

	// Structural mismatch between row 0 and the data rows.
	modalCols := modalLength(data)
	if len(first) != modalCols {
		return false, 0.3
	}

	allNumeric := true
	for _, cell := range first {
		if !isNumericCell(strings.TrimSpace(cell)) {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		return false, 0.9
	}

	votes, weight := 0.0, 0.0
	for col, cell := range first {
		cell = strings.TrimSpace(unquoteCell(cell))
		weight += 2

		switch {
		case isNumericCell(cell):
			votes -= 2
		case columnIsNumeric(data, col):
			// Text label above a numeric column: the strongest signal.
			votes += 2
		case headerWords[strings.ToLower(cell)]:
			votes += 1.5
		case looksLikeHeader(cell):
			votes++
		}
	}

	score := votes / weight // [-1, 1]
	conf := 0.5 + 0.45*abs(score)
	if conf > 0.95 {
		conf = 0.95
	}
	return score > 0, conf
}

func modalLength(rows [][]string) int {
	counts := make(map[int]int, 4)
	for _, r := range rows {
		counts[len(r)]++
	}
	modal, freq := 0, 0
	for n, f := range counts {
		if f > freq {
			modal, freq = n, f
		}
	}
	return modal
}

// columnIsNumeric reports whether a majority of the data rows hold a numeric
// value in the given column.
func columnIsNumeric(rows [][]string, col int) bool {
	numeric, total := 0, 0
	for _, r := range rows {
		if col >= len(r) {
			continue
		}
		cell := strings.TrimSpace(unquoteCell(r[col]))
		if cell == "" {
			continue
		}
		total++
		if isNumericCell(cell) {
			numeric++
		}
	}
	return total > 0 && numeric*2 > total
}

func looksLikeHeader(s string) bool {
	if s == "" || isNumericCell(s) {
		return false
	}
	for _, pattern := range headerShapePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// isNumericCell reports whether s is an integer or decimal literal,
// optionally signed.
func isNumericCell(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}

	hasDot := false
	for _, ch := range s {
		if ch == '.' {
			if hasDot {
				return false
			}
			hasDot = true
			continue
		}
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

// unquoteCell strips one layer of surrounding double quotes.
func unquoteCell(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// splitQuoteAware splits a line on the delimiter, ignoring delimiters inside
// double-quoted sections.
func splitQuoteAware(line string, delim byte) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			current.WriteByte(c)
		case c == delim && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	fields = append(fields, current.String())
	return fields
}

// detectLineEnding counts terminator styles in the raw sample. An LF
// directly preceded by CR counts as CRLF, never double-counted. Any CRLF
// presence is authoritative evidence of a Windows-style file that may have
// been partially normalized, so CRLF wins even when bare LF is more
// numerous.
func detectLineEnding(sample []byte) (string, float64) {
	var crlf, bareLF, bareCR int
	for i := 0; i < len(sample); i++ {
		switch sample[i] {
		case '\r':
			if i+1 < len(sample) && sample[i+1] == '\n' {
				crlf++
				i++
			} else {
				bareCR++
			}
		case '\n':
			bareLF++
		}
	}

	total := crlf + bareLF + bareCR
	if total == 0 {
		return LineEndingLF, 0.5
	}

	switch {
	case crlf > 0:
		conf := float64(crlf) / float64(total)
		if conf < 0.6 {
			conf = 0.6
		}
		return LineEndingCRLF, conf
	case bareLF > 0:
		return LineEndingLF, float64(bareLF) / float64(total)
	default:
		return LineEndingCR, float64(bareCR) / float64(total)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
