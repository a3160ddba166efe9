package tabular

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHandler is a minimal FormatHandler for registry tests.
type stubHandler struct {
	name       string
	confidence float64
	panics     bool
}

func (s *stubHandler) Format() string { return s.name }

func (s *stubHandler) Detect(sample []byte) FormatDetectionResult {
	if s.panics {
		panic("detector bug")
	}
	return FormatDetectionResult{Format: s.name, Confidence: s.confidence}
}

func (s *stubHandler) Parse(r io.Reader) (*Rows, error) {
	return nil, nil
}

func stubRegistration(name string, confidence float64, priority int, exts ...string) FormatRegistration {
	return FormatRegistration{
		Name:       name,
		Extensions: exts,
		Priority:   priority,
		New: func(opts ReadOptions) (FormatHandler, error) {
			return &stubHandler{name: name, confidence: confidence}, nil
		},
	}
}

func TestRegistry_FormatsSorted(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRegistration("zeta", 0.9, 0))
	r.Register(stubRegistration("alpha", 0.9, 0))

	assert.Equal(t, []string{"alpha", "zeta"}, r.Formats())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRegistration("fmt", 0.2, 0))
	r.Register(stubRegistration("fmt", 0.9, 0))

	sel, err := r.GetParser([]byte("x"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, "fmt", sel.Format)
	assert.InDelta(t, 0.9, sel.Detection.Confidence, 1e-9)
}

func TestRegistry_PicksHighestConfidence(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRegistration("low", 0.6, 100))
	r.Register(stubRegistration("high", 0.9, 0))

	sel, err := r.GetParser([]byte("x"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, "high", sel.Format)
}

func TestRegistry_PriorityBreaksTies(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRegistration("second", 0.9, 1))
	r.Register(stubRegistration("first", 0.9, 2))

	sel, err := r.GetParser([]byte("x"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, "first", sel.Format)
}

func TestRegistry_ExtensionFiltersCandidates(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRegistration("binary", 0.99, 0, "bin"))
	r.Register(stubRegistration("rows", 0.7, 0, "csv"))

	// A known extension narrows the candidate set: the higher claim is
	// registered for a different extension and is never consulted.
	sel, err := r.GetParserForPath("/data/input.csv", []byte("x"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, "rows", sel.Format)

	// An extension nothing claims falls back to every registration.
	sel, err = r.GetParserForPath("/data/input.xyz", []byte("x"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, "binary", sel.Format)
}

func TestRegistry_ExtensionMatchIsCaseInsensitive(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRegistration("generic", 0.9, 5))
	r.Register(stubRegistration("special", 0.9, 1, "spc"))

	sel, err := r.GetParserForPath("/data/input.SPC", []byte("x"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, "special", sel.Format)
}

func TestRegistry_ForeignExtensionCannotClaimKnownPath(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(FormatRegistration{
		Name:       FormatDelimited,
		Extensions: []string{"csv", "tsv"},
		Priority:   10,
		New: func(opts ReadOptions) (FormatHandler, error) {
			return NewDelimitedAdapter(opts)
		},
	})
	r.Register(stubRegistration("binary", 0.99, 0, "bin"))

	sel, err := r.GetParserForPath("data.csv", []byte("name,age\nJohn,25\nJane,30\n"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, FormatDelimited, sel.Format)
}

func TestRegistry_BelowFloorRejected(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRegistration("weak", 0.3, 0))

	_, err := r.GetParser([]byte("x"), DefaultReadOptions())
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	var ufErr *UnsupportedFormatError
	require.ErrorAs(t, err, &ufErr)
	assert.Equal(t, []string{"weak"}, ufErr.Supported)
	assert.NotEmpty(t, ufErr.SuggestedFixes)
}

func TestRegistry_EmptyRejected(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.GetParser([]byte("x"), DefaultReadOptions())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_PanicIsolated(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(FormatRegistration{
		Name: "crashy",
		New: func(opts ReadOptions) (FormatHandler, error) {
			return &stubHandler{name: "crashy", confidence: 1.0, panics: true}, nil
		},
	})
	r.Register(stubRegistration("steady", 0.8, 0))

	sel, err := r.GetParser([]byte("x"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, "steady", sel.Format)
}

func TestRegistry_ExplicitFormat(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRegistration("wanted", 0.1, 0))
	r.Register(stubRegistration("other", 0.9, 0))

	opts := ReadOptions{Format: "wanted"}
	sel, err := r.GetParser([]byte("x"), opts)
	require.NoError(t, err)
	// Explicit selection bypasses the floor and the ranking.
	assert.Equal(t, "wanted", sel.Format)
}

func TestRegistry_ExplicitFormatUnknown(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRegistration("known", 0.9, 0))

	_, err := r.GetParser([]byte("x"), ReadOptions{Format: "nope"})
	var ufErr *UnsupportedFormatError
	require.ErrorAs(t, err, &ufErr)
	assert.Equal(t, "nope", ufErr.Format)
	assert.Equal(t, []string{"known"}, ufErr.Supported)
}

func TestDefaultRegistry_HasDelimited(t *testing.T) {
	assert.Contains(t, DefaultRegistry().Formats(), FormatDelimited)

	sel, err := DefaultRegistry().GetParser([]byte("a,b\n1,2\n"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, FormatDelimited, sel.Format)
}

func TestDefaultRegistry_RejectsBinary(t *testing.T) {
	junk := make([]byte, 64)
	for i := range junk {
		junk[i] = byte(0xF9) // invalid UTF-8 lead bytes, no structure
	}
	_, err := DefaultRegistry().GetParser(junk, DefaultReadOptions())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
