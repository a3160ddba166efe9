package tabular

import (
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// acceptanceFloor is the minimum detection confidence a handler must report
// before the registry will hand the input to it.
const acceptanceFloor = 0.5

// FormatHandler parses one tabular format.
type FormatHandler interface {
	// Format returns the handler's registered name.
	Format() string

	// Detect reports the handler's confidence claim on a leading sample.
	Detect(sample []byte) FormatDetectionResult

	// Parse builds a streaming row session over the full input.
	Parse(r io.Reader) (*Rows, error)
}

// FormatRegistration describes a format known to a Registry.
type FormatRegistration struct {
	// Name identifies the format; registering the same name again replaces
	// the earlier registration.
	Name string

	// Extensions are lowercase file extensions without the dot that this
	// format claims. When the input's extension is known, only formats
	// claiming it are asked for a detection; formats are never picked on the
	// extension alone.
	Extensions []string

	// Priority breaks confidence ties between handlers: higher wins.
	Priority int

	// New builds a handler bound to the given options.
	New func(opts ReadOptions) (FormatHandler, error)
}

// ParserSelection is the registry's verdict: the chosen handler together with
// the detection that chose it.
type ParserSelection struct {
	Format    string
	Handler   FormatHandler
	Detection FormatDetectionResult
}

// Registry maps format names to handlers and picks the best handler for a
// given input. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]FormatRegistration
	log     *slog.Logger
}

// NewRegistry returns an empty registry logging through the given logger
// (slog.Default when nil).
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		formats: make(map[string]FormatRegistration),
		log:     log,
	}
}

// Register adds or replaces a format. Replacement is silent and last-write-
// wins, so applications can shadow the built-in handlers.
func (r *Registry) Register(reg FormatRegistration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.formats[reg.Name]; exists {
		r.log.Debug("replacing format registration", "format", reg.Name)
	}
	r.formats[reg.Name] = reg
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetParser picks the handler for the sampled input. An explicit opts.Format
// bypasses detection entirely; otherwise every candidate handler is asked
// for a confidence claim and the best claim at or above the acceptance floor
// wins. Ties go to registration priority, then name.
func (r *Registry) GetParser(sample []byte, opts ReadOptions) (*ParserSelection, error) {
	return r.getParser(sample, "", opts)
}

// GetParserForPath is GetParser with the candidate set narrowed to the
// formats registered for the file's extension. When no registration claims
// the extension, every format stays a candidate.
func (r *Registry) GetParserForPath(path string, sample []byte, opts ReadOptions) (*ParserSelection, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return r.getParser(sample, ext, opts)
}

func (r *Registry) getParser(sample []byte, ext string, opts ReadOptions) (*ParserSelection, error) {
	if opts.Format != "" {
		return r.explicit(sample, opts)
	}

	r.mu.RLock()
	regs := make([]FormatRegistration, 0, len(r.formats))
	for _, reg := range r.formats {
		regs = append(regs, reg)
	}
	r.mu.RUnlock()

	// A known extension narrows the candidates to the formats that claim it;
	// when nothing claims it, fall back to asking everyone.
	if ext != "" {
		matching := make([]FormatRegistration, 0, len(regs))
		for _, reg := range regs {
			if matchesExtension(reg, ext) {
				matching = append(matching, reg)
			}
		}
		if len(matching) > 0 {
			regs = matching
		}
	}

	type claim struct {
		reg     FormatRegistration
		handler FormatHandler
		det     FormatDetectionResult
	}
	claims := make([]claim, 0, len(regs))

	for _, reg := range regs {
		handler, err := reg.New(opts)
		if err != nil {
			// Options the handler rejects; configuration errors are not
			// per-handler conditions, surface the first one.
			return nil, err
		}
		claims = append(claims, claim{
			reg:     reg,
			handler: handler,
			det:     r.safeDetect(handler, sample),
		})
	}

	sort.Slice(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		if a.det.Confidence != b.det.Confidence {
			return a.det.Confidence > b.det.Confidence
		}
		if a.reg.Priority != b.reg.Priority {
			return a.reg.Priority > b.reg.Priority
		}
		return a.reg.Name < b.reg.Name
	})

	if len(claims) == 0 || claims[0].det.Confidence < acceptanceFloor {
		return nil, &UnsupportedFormatError{
			Supported: r.Formats(),
			SuggestedFixes: []string{
				"set Format explicitly if the input's format is known",
				"set Delimiter explicitly if the input uses an unusual delimiter",
				"check that the input is text, not a binary file",
			},
		}
	}

	best := claims[0]
	return &ParserSelection{
		Format:    best.reg.Name,
		Handler:   best.handler,
		Detection: best.det,
	}, nil
}

func (r *Registry) explicit(sample []byte, opts ReadOptions) (*ParserSelection, error) {
	r.mu.RLock()
	reg, ok := r.formats[opts.Format]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedFormatError{
			Format:    opts.Format,
			Supported: r.Formats(),
			SuggestedFixes: []string{
				"register the format before requesting it",
				"check the format name for typos",
			},
		}
	}

	handler, err := reg.New(opts)
	if err != nil {
		return nil, err
	}
	return &ParserSelection{
		Format:    reg.Name,
		Handler:   handler,
		Detection: r.safeDetect(handler, sample),
	}, nil
}

// safeDetect isolates handler panics: a crashing Detect becomes a
// zero-confidence claim instead of taking down the selection.
func (r *Registry) safeDetect(h FormatHandler, sample []byte) (det FormatDetectionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("format detection panicked",
				"format", h.Format(), "panic", rec)
			det = FormatDetectionResult{Format: h.Format()}
		}
	}()
	return h.Detect(sample)
}

func matchesExtension(reg FormatRegistration, ext string) bool {
	for _, e := range reg.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the shared registry with the built-in formats
// registered.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(nil)
		defaultRegistry.Register(FormatRegistration{
			Name:       FormatDelimited,
			Extensions: []string{"csv", "tsv", "psv", "tab", "txt"},
			Priority:   10,
			New: func(opts ReadOptions) (FormatHandler, error) {
				return NewDelimitedAdapter(opts)
			},
		})
	})
	return defaultRegistry
}
