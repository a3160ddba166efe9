package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOptionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadReadOptions(t *testing.T) {
	path := writeOptionsFile(t, `
delimiter: ";"
quote: "'"
encoding: utf-8
has_header: true
trim_fields: true
skip_empty_lines: true
max_rows: 100
max_field_size: 4096
`)

	opts, err := LoadReadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, ';', opts.Delimiter)
	assert.Equal(t, '\'', opts.Quote)
	assert.Equal(t, rune(0), opts.Escape)
	assert.Equal(t, EncodingUTF8, opts.Encoding)
	require.NotNil(t, opts.HasHeader)
	assert.True(t, *opts.HasHeader)
	assert.True(t, opts.TrimFields)
	assert.True(t, opts.SkipEmptyLines)
	assert.Equal(t, int64(100), opts.MaxRows)
	assert.Equal(t, 4096, opts.MaxFieldSize)
}

func TestLoadReadOptions_TabDelimiter(t *testing.T) {
	path := writeOptionsFile(t, "delimiter: \"\\t\"\n")

	opts, err := LoadReadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, '\t', opts.Delimiter)
}

func TestLoadReadOptions_EmptyFileKeepsDefaults(t *testing.T) {
	path := writeOptionsFile(t, "{}\n")

	opts, err := LoadReadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultReadOptions().Delimiter, opts.Delimiter)
	assert.Nil(t, opts.HasHeader)
}

func TestLoadReadOptions_MultiCharDelimiter(t *testing.T) {
	path := writeOptionsFile(t, `delimiter: ",,"`)

	_, err := LoadReadOptions(path)
	var optErr *OptionsError
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "delimiter", optErr.Field)
}

func TestLoadReadOptions_InvalidResult(t *testing.T) {
	path := writeOptionsFile(t, `encoding: ebcdic`)

	_, err := LoadReadOptions(path)
	var optErr *OptionsError
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "Encoding", optErr.Field)
}

func TestLoadReadOptions_MissingFile(t *testing.T) {
	_, err := LoadReadOptions(filepath.Join(t.TempDir(), "absent.yaml"))
	var srcErr *SourceError
	assert.ErrorAs(t, err, &srcErr)
}

func TestLoadReadOptions_MalformedYAML(t *testing.T) {
	path := writeOptionsFile(t, "delimiter: [unclosed")

	_, err := LoadReadOptions(path)
	assert.Error(t, err)
}
