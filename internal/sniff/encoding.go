package sniff

// Encoding labels returned by DetectEncoding.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
)

// EncodingResult reports the most likely byte encoding of a sample.
type EncodingResult struct {
	Encoding   string
	Confidence float64
	HasBOM     bool

	// BOMLength is 0, 2, or 3; callers skip that many leading bytes before
	// decoding.
	BOMLength int
}

// DetectEncoding infers the byte encoding of a leading sample.
//
// A byte-order mark is checked first and is authoritative: it overrides any
// statistical signal from the remaining bytes. A UTF-16 big-endian BOM is
// reported with the little-endian label; downstream decoders run in
// BOM-honoring mode and resolve the true endianness themselves, so the label
// stays compatible with decoders that only accept the LE name. Empty input
// returns UTF-8 at exactly 0.5: a deliberate "no evidence" sentinel, not an
// error.
func DetectEncoding(sample []byte) EncodingResult {
	if len(sample) == 0 {
		return EncodingResult{Encoding: EncodingUTF8, Confidence: 0.5}
	}

	if r, ok := detectBOM(sample); ok {
		return r
	}

	if r, ok := detectUTF16Heuristic(sample); ok {
		return r
	}

	return scoreUTF8(sample)
}

func detectBOM(sample []byte) (EncodingResult, bool) {
	if len(sample) >= 3 && sample[0] == 0xEF && sample[1] == 0xBB && sample[2] == 0xBF {
		return EncodingResult{Encoding: EncodingUTF8, Confidence: 1.0, HasBOM: true, BOMLength: 3}, true
	}
	if len(sample) >= 2 {
		if sample[0] == 0xFF && sample[1] == 0xFE {
			return EncodingResult{Encoding: EncodingUTF16LE, Confidence: 1.0, HasBOM: true, BOMLength: 2}, true
		}
		if sample[0] == 0xFE && sample[1] == 0xFF {
			// Big-endian bytes, little-endian label; see DetectEncoding.
			return EncodingResult{Encoding: EncodingUTF16LE, Confidence: 1.0, HasBOM: true, BOMLength: 2}, true
		}
	}
	return EncodingResult{}, false
}

// detectUTF16Heuristic looks for BOM-less UTF-16: ASCII-heavy UTF-16 text
// has a high null-byte ratio with the nulls concentrated on one side of each
// byte pair.
func detectUTF16Heuristic(sample []byte) (EncodingResult, bool) {
	var nulls, evenNulls, oddNulls int
	for i, b := range sample {
		if b == 0 {
			nulls++
			if i%2 == 0 {
				evenNulls++
			} else {
				oddNulls++
			}
		}
	}

	ratio := float64(nulls) / float64(len(sample))
	if ratio < 0.1 {
		return EncodingResult{}, false
	}

	// Regularity: how strongly the nulls favor one parity.
	dominant := evenNulls
	if oddNulls > dominant {
		dominant = oddNulls
	}
	regularity := float64(dominant) / float64(nulls)

	conf := 0.55 + 0.4*(regularity-0.5)*2
	if conf > 0.95 {
		conf = 0.95
	}

	// Nulls on odd positions mean the low (ASCII) byte comes first.
	if oddNulls >= evenNulls {
		return EncodingResult{Encoding: EncodingUTF16LE, Confidence: conf}, true
	}
	return EncodingResult{Encoding: EncodingUTF16BE, Confidence: conf}, true
}

// scoreUTF8 validates the sample as UTF-8: every leading byte's declared
// sequence length must be matched by that many valid continuation bytes.
// Invalid sequences and control characters reduce confidence but never
// change the verdict away from UTF-8; decoders are expected to substitute on
// bad input rather than fail.
func scoreUTF8(sample []byte) EncodingResult {
	var invalid, multibyte, controls int

	for i := 0; i < len(sample); {
		b := sample[i]

		switch {
		case b < 0x80:
			if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
				controls++
			}
			i++
			continue
		case b&0xE0 == 0xC0:
			if i+1 < len(sample) && isContinuation(sample[i+1]) && b >= 0xC2 {
				multibyte++
				i += 2
				continue
			}
		case b&0xF0 == 0xE0:
			if i+2 < len(sample) && isContinuation(sample[i+1]) && isContinuation(sample[i+2]) {
				multibyte++
				i += 3
				continue
			}
		case b&0xF8 == 0xF0:
			if i+3 < len(sample) && isContinuation(sample[i+1]) &&
				isContinuation(sample[i+2]) && isContinuation(sample[i+3]) {
				multibyte++
				i += 4
				continue
			}
		}

		invalid++
		i++
	}

	conf := 0.95
	if multibyte > 0 {
		conf = 0.92
	}
	if controls > 0 {
		conf -= 0.1
	}
	if invalid > 0 {
		penalty := 2 * float64(invalid) / float64(len(sample))
		if penalty > 0.55 {
			penalty = 0.55
		}
		conf -= penalty
	}
	if conf < 0.3 {
		conf = 0.3
	}

	return EncodingResult{Encoding: EncodingUTF8, Confidence: conf}
}

func isContinuation(b byte) bool {
	return b&0xC0 == 0x80
}
