package scanner

// SWAR (SIMD Within A Register) scanning: runs of plain field content are
// skipped 8 bytes at a time by broadcasting each structural byte across a
// uint64 and applying the zero-byte detection trick, instead of classifying
// byte-by-byte. Only the dialect's structural bytes and CR/LF can change
// parser state, so everything before the first match is safe to bulk-append.

import (
	"encoding/binary"
	"math/bits"
)

const (
	swarLo = 0x0101010101010101
	swarHi = 0x8080808080808080
)

// broadcast replicates b into all 8 bytes of a uint64.
func broadcast(b byte) uint64 {
	return uint64(b) * swarLo
}

// matchMask returns a word with the high bit set in every byte position
// where data equals the broadcast pattern.
//
// The expression ((x - 0x01..01) & ^x & 0x80..80) has a non-zero byte
// exactly where x had a zero byte.
func matchMask(data, pattern uint64) uint64 {
	x := data ^ pattern
	return (x - swarLo) & ^x & swarHi
}

// firstMatch returns the byte offset of the lowest set high bit in mask.
func firstMatch(mask uint64) int {
	return bits.TrailingZeros64(mask) / 8
}

// unquotedRun returns how many leading bytes of data are plain content for
// an unquoted field: everything before the first delimiter, quote, escape,
// CR, or LF.
func (m *Machine) unquotedRun(data []byte) int {
	n := 0
	for n+8 <= len(data) {
		w := binary.LittleEndian.Uint64(data[n:])
		mask := matchMask(w, m.bcComma) |
			matchMask(w, m.bcQuote) |
			matchMask(w, broadcast('\r')) |
			matchMask(w, broadcast('\n'))
		if m.dialect.Escape != m.dialect.Quote {
			mask |= matchMask(w, m.bcEscape)
		}
		if mask != 0 {
			return n + firstMatch(mask)
		}
		n += 8
	}
	for n < len(data) && m.classes[data[n]] == classOther {
		n++
	}
	return n
}

// quotedRun returns how many leading bytes of data are plain content for a
// quoted field: everything before the first quote or escape. Delimiters and
// line breaks are data inside quotes and do not stop the run.
func (m *Machine) quotedRun(data []byte) int {
	n := 0
	for n+8 <= len(data) {
		w := binary.LittleEndian.Uint64(data[n:])
		mask := matchMask(w, m.bcQuote)
		if m.dialect.Escape != m.dialect.Quote {
			mask |= matchMask(w, m.bcEscape)
		}
		if mask != 0 {
			return n + firstMatch(mask)
		}
		n += 8
	}
	for n < len(data) {
		c := data[n]
		if c == m.dialect.Quote || (m.dialect.Escape != m.dialect.Quote && c == m.dialect.Escape) {
			break
		}
		n++
	}
	return n
}
