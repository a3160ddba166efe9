package sniff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDialect_Delimiter(t *testing.T) {
	tests := []struct {
		name    string
		sample  string
		want    byte
		minConf float64
		maxConf float64
	}{
		{
			name:    "uniform comma",
			sample:  "a,b,c\nd,e,f\ng,h,i\n",
			want:    ',',
			minConf: 0.8,
		},
		{
			name:    "uniform semicolon",
			sample:  "a;b;c\nd;e;f\n",
			want:    ';',
			minConf: 0.8,
		},
		{
			name:    "uniform tab",
			sample:  "a\tb\nc\td\n",
			want:    '\t',
			minConf: 0.8,
		},
		{
			name:    "uniform pipe",
			sample:  "a|b|c\nd|e|f\n",
			want:    '|',
			minConf: 0.8,
		},
		{
			name:    "consistency beats field count",
			sample:  "A;B,extra\nC;D",
			want:    ';',
			minConf: 0.8,
		},
		{
			name:    "two uniform columns outrank inconsistent higher counts",
			sample:  "a;b\nc,x,y;d\ne;f\n",
			want:    ';',
			minConf: 0.8,
		},
		{
			name:    "single line defaults to comma",
			sample:  "a,b,c",
			want:    ',',
			maxConf: 0.6,
		},
		{
			name:    "empty sample defaults to comma",
			sample:  "",
			want:    ',',
			maxConf: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDialect([]byte(tt.sample))
			assert.Equal(t, tt.want, got.Delimiter)
			if tt.minConf > 0 {
				assert.GreaterOrEqual(t, got.DelimiterConfidence, tt.minConf)
			}
			if tt.maxConf > 0 {
				assert.Less(t, got.DelimiterConfidence, tt.maxConf)
			}
		})
	}
}

func TestDetectDialect_NoStructureScoresLowEverywhere(t *testing.T) {
	sample := "the quick brown fox\njumps over\na lazy dog near the riverbank\n"
	got := DetectDialect([]byte(sample))

	for delim, score := range got.DelimiterScores {
		assert.Lessf(t, score, 0.6, "delimiter %q", string(delim))
	}
}

func TestDetectDialect_TieBreakPriorityOrder(t *testing.T) {
	// Comma and semicolon split this sample identically; the fixed priority
	// order must pick the comma.
	sample := "a,b;c\nd,e;f\n"
	got := DetectDialect([]byte(sample))
	assert.Equal(t, byte(','), got.Delimiter)
	assert.Equal(t, got.DelimiterScores[','], got.DelimiterScores[';'])
}

func TestDetectDialect_Columns(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   int
	}{
		{name: "uniform three columns", sample: "a,b,c\nd,e,f\ng,h,i\n", want: 3},
		{name: "modal wins over outlier", sample: "a,b\nc,d\ne,f,g\nh,i\n", want: 2},
		{name: "single column", sample: "alpha\nbeta\ngamma\n", want: 1},
		{name: "single line", sample: "a,b,c", want: 3},
		{name: "empty sample", sample: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDialect([]byte(tt.sample)).Columns)
		})
	}
}

func TestDetectDialect_Quote(t *testing.T) {
	tests := []struct {
		name    string
		sample  string
		want    byte
		minConf float64
		maxConf float64
	}{
		{
			name:    "double quotes",
			sample:  "\"a\",\"b\"\n\"c\",\"d\"\n",
			want:    '"',
			minConf: 0.5,
		},
		{
			name:    "single quotes",
			sample:  "'a','b'\n'c','d'\n",
			want:    '\'',
			minConf: 0.5,
		},
		{
			name:    "no quotes defaults to double below 0.5",
			sample:  "a,b\nc,d\n",
			want:    '"',
			maxConf: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDialect([]byte(tt.sample))
			assert.Equal(t, tt.want, got.Quote)
			if tt.minConf > 0 {
				assert.GreaterOrEqual(t, got.QuoteConfidence, tt.minConf)
			}
			if tt.maxConf > 0 {
				assert.Less(t, got.QuoteConfidence, tt.maxConf)
			}
		})
	}
}

func TestDetectDialect_Header(t *testing.T) {
	tests := []struct {
		name       string
		sample     string
		wantHeader bool
		maxConf    float64
	}{
		{
			name:       "text labels over numeric columns",
			sample:     "name,age,score\nJohn,25,88.5\nJane,30,92.1\n",
			wantHeader: true,
		},
		{
			name:       "snake_case labels",
			sample:     "user_id,created_at\n1001,2024-01-15\n1002,2024-02-20\n",
			wantHeader: true,
		},
		{
			name:       "all numeric first row",
			sample:     "1,2,3\n4,5,6\n",
			wantHeader: false,
		},
		{
			name:       "numeric data rows without header",
			sample:     "10,20\n30,40\n50,60\n",
			wantHeader: false,
		},
		{
			name:       "single line",
			sample:     "name,age",
			wantHeader: false,
			maxConf:    0.6,
		},
		{
			name:       "empty sample",
			sample:     "",
			wantHeader: false,
			maxConf:    0.6,
		},
		{
			name:       "column count mismatch is unreliable",
			sample:     "a,b\n1,2,3\n4,5,6\n",
			wantHeader: false,
			maxConf:    0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDialect([]byte(tt.sample))
			assert.Equal(t, tt.wantHeader, got.HasHeader)
			if tt.maxConf > 0 {
				assert.Less(t, got.HeaderConfidence, tt.maxConf)
			}
		})
	}
}

func TestDetectDialect_LineEnding(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   string
	}{
		{"plain LF", "a,b\nc,d\n", LineEndingLF},
		{"plain CRLF", "a,b\r\nc,d\r\n", LineEndingCRLF},
		{"bare CR", "a,b\rc,d\r", LineEndingCR},
		{"CRLF wins even when outnumbered", "a\nb\nc\nd\r\ne\n", LineEndingCRLF},
		{"no terminators defaults to LF", "a,b", LineEndingLF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDialect([]byte(tt.sample))
			assert.Equal(t, tt.want, got.LineEnding)
		})
	}
}

func TestDetectDialect_CRLFNotDoubleCounted(t *testing.T) {
	// Two CRLF terminators and one bare LF: CRLF confidence comes from a
	// total of three, not five.
	got := DetectDialect([]byte("a\r\nb\r\nc\n"))
	assert.Equal(t, LineEndingCRLF, got.LineEnding)
	assert.InDelta(t, 2.0/3.0, got.LineEndingConfidence, 0.001)
}

func TestDetectDialect_QuotedDelimitersIgnoredInHeaderSplit(t *testing.T) {
	sample := "name,\"notes, extended\"\nJohn,\"likes, a lot\"\nJane,\"dislikes, some\"\n"
	got := DetectDialect([]byte(sample))
	assert.Equal(t, byte(','), got.Delimiter)
	assert.True(t, got.HasHeader)
}

func TestDetectDialect_ManyLines(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,name,value\n")
	for i := 0; i < 50; i++ {
		b.WriteString("1,foo,2.5\n")
	}
	got := DetectDialect([]byte(b.String()))

	assert.Equal(t, byte(','), got.Delimiter)
	assert.GreaterOrEqual(t, got.DelimiterConfidence, 0.8)
	assert.True(t, got.HasHeader)
}
