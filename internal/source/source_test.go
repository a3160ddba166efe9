package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChunkReader(t *testing.T) {
	input := strings.Repeat("x", 100)
	cr := NewChunkReader(strings.NewReader(input), 33)
	defer cr.Close()

	var got []byte
	for {
		chunk, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if len(chunk) == 0 {
			t.Fatal("Next() returned empty chunk without error")
		}
		if len(chunk) > 33 {
			t.Fatalf("chunk size %d exceeds configured 33", len(chunk))
		}
		got = append(got, chunk...)
	}

	if string(got) != input {
		t.Errorf("reassembled %d bytes, want %d", len(got), len(input))
	}
}

// stutterReader returns (0, nil) before every productive read.
type stutterReader struct {
	r       io.Reader
	stutter bool
}

func (s *stutterReader) Read(p []byte) (int, error) {
	s.stutter = !s.stutter
	if s.stutter {
		return 0, nil
	}
	return s.r.Read(p)
}

func TestChunkReader_RetriesZeroByteReads(t *testing.T) {
	cr := NewChunkReader(&stutterReader{r: strings.NewReader("abcdef")}, 4)
	defer cr.Close()

	var got []byte
	for {
		chunk, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, chunk...)
	}

	if string(got) != "abcdef" {
		t.Errorf("reassembled %q, want %q", got, "abcdef")
	}
}

func TestChunkReader_Empty(t *testing.T) {
	cr := NewChunkReader(strings.NewReader(""), 0)
	defer cr.Close()

	if _, err := cr.Next(); err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestSample_Replay(t *testing.T) {
	input := strings.Repeat("abc", 100)

	sample, rest, err := Sample(strings.NewReader(input), 10)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if string(sample) != input[:10] {
		t.Errorf("sample = %q, want %q", sample, input[:10])
	}

	all, err := io.ReadAll(rest)
	if err != nil {
		t.Fatalf("ReadAll error = %v", err)
	}
	if string(all) != input {
		t.Errorf("replayed stream lost bytes: got %d, want %d", len(all), len(input))
	}
}

func TestSample_ShortInput(t *testing.T) {
	sample, rest, err := Sample(strings.NewReader("ab"), 10)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if string(sample) != "ab" {
		t.Errorf("sample = %q, want %q", sample, "ab")
	}
	if all, _ := io.ReadAll(rest); string(all) != "ab" {
		t.Errorf("replay = %q, want %q", all, "ab")
	}
}

func TestSampleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := []byte("a,b,c\nd,e,f\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	sample, size, cleanup, err := SampleFile(path, 6)
	if err != nil {
		t.Fatalf("SampleFile() error = %v", err)
	}
	defer cleanup()

	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
	if !bytes.Equal(sample, content[:6]) {
		t.Errorf("sample = %q, want %q", sample, content[:6])
	}
}

func TestSampleFile_Missing(t *testing.T) {
	if _, _, _, err := SampleFile(filepath.Join(t.TempDir(), "nope.csv"), 0); err == nil {
		t.Error("expected error for missing file")
	}
}
