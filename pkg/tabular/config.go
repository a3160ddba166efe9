package tabular

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/goccy/go-yaml"
)

// optionsFile is the YAML schema for LoadReadOptions. Structural characters
// are one-character strings ("\t" for tab); absent keys keep auto-detection.
type optionsFile struct {
	Delimiter      string `yaml:"delimiter"`
	Quote          string `yaml:"quote"`
	Escape         string `yaml:"escape"`
	Encoding       string `yaml:"encoding"`
	Format         string `yaml:"format"`
	HasHeader      *bool  `yaml:"has_header"`
	TrimFields     bool   `yaml:"trim_fields"`
	SkipEmptyLines bool   `yaml:"skip_empty_lines"`
	MaxRows        int64  `yaml:"max_rows"`
	MaxFieldSize   int    `yaml:"max_field_size"`
	ChunkSize      int    `yaml:"chunk_size"`
	SampleSize     int    `yaml:"sample_size"`
}

// LoadReadOptions reads a YAML options file over the defaults and validates
// the result. A file needs to name only what it pins down:
//
//	delimiter: ";"
//	has_header: true
//	skip_empty_lines: true
func LoadReadOptions(path string) (ReadOptions, error) {
	opts := DefaultReadOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, &SourceError{Path: path, Err: err}
	}

	var file optionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return opts, fmt.Errorf("parsing options file %s: %w", path, err)
	}

	if opts.Delimiter, err = fileRune("delimiter", file.Delimiter); err != nil {
		return opts, err
	}
	if opts.Quote, err = fileRune("quote", file.Quote); err != nil {
		return opts, err
	}
	if opts.Escape, err = fileRune("escape", file.Escape); err != nil {
		return opts, err
	}
	opts.Encoding = file.Encoding
	opts.Format = file.Format
	opts.HasHeader = file.HasHeader
	opts.TrimFields = file.TrimFields
	opts.SkipEmptyLines = file.SkipEmptyLines
	opts.MaxRows = file.MaxRows
	opts.MaxFieldSize = file.MaxFieldSize
	opts.ChunkSize = file.ChunkSize
	opts.SampleSize = file.SampleSize

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// fileRune converts a one-character YAML string into its rune, with "" as
// the auto-detect zero value.
func fileRune(field, s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, &OptionsError{Field: field, Message: "must be a single character"}
	}
	return r, nil
}
