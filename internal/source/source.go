// Package source supplies byte chunks to parsing sessions.
//
// The parsing core never performs I/O itself; a ChunkReader adapts any
// io.Reader into the chunk-at-a-time feed the state machine consumes, and
// Sample takes a bounded prefix for detection without losing bytes for the
// subsequent parse. No seekability is assumed anywhere.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// DefaultChunkSize balances cache efficiency against boundary overhead.
const DefaultChunkSize = 8 * 1024

// DefaultSampleSize bounds the prefix read for detection.
const DefaultSampleSize = 64 * 1024

// ChunkReader reads fixed-size chunks from an io.Reader into a reused
// buffer. The returned slice is only valid until the next call.
type ChunkReader struct {
	r    io.Reader
	buf  []byte
	done bool
}

// NewChunkReader creates a ChunkReader with the given chunk size
// (DefaultChunkSize if non-positive). The chunk buffer comes from a shared
// pool; call Close to return it.
func NewChunkReader(r io.Reader, size int) *ChunkReader {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &ChunkReader{r: r, buf: getChunkBuffer(size)}
}

// Next returns the next chunk, or io.EOF after the last one. Short reads
// are surfaced as short chunks; only io.EOF ends the stream. A read that
// returns (0, nil) means nothing happened and is retried.
func (c *ChunkReader) Next() ([]byte, error) {
	if c.done {
		return nil, io.EOF
	}

	for {
		n, err := c.r.Read(c.buf)
		if n > 0 {
			if err == io.EOF {
				c.done = true
			}
			return c.buf[:n], nil
		}
		if err == nil {
			continue
		}
		if err == io.EOF {
			c.done = true
		}
		return nil, err
	}
}

// Close returns the chunk buffer to the pool. The ChunkReader must not be
// used afterwards.
func (c *ChunkReader) Close() {
	putChunkBuffer(c.buf)
	c.buf = nil
	c.done = true
}

// Sample reads up to n bytes from r and returns them together with a reader
// that replays the sampled bytes before the remainder, so detection does not
// consume input the parse needs.
func Sample(r io.Reader, n int) ([]byte, io.Reader, error) {
	if n <= 0 {
		n = DefaultSampleSize
	}

	sample := make([]byte, 0, n)
	buf := make([]byte, 4096)
	for len(sample) < n {
		limit := n - len(sample)
		if limit > len(buf) {
			limit = len(buf)
		}
		read, err := r.Read(buf[:limit])
		sample = append(sample, buf[:read]...)
		if err == io.EOF {
			// Fully buffered; no remainder to replay.
			return sample, bytes.NewReader(sample), nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("sampling input: %w", err)
		}
	}

	return sample, io.MultiReader(bytes.NewReader(sample), r), nil
}

// SampleFile reads a bounded prefix of a file, memory-mapping it when the
// platform supports that. The returned cleanup must be called when the
// sample is no longer needed, and also reports the file's total size.
func SampleFile(path string, n int) (sample []byte, size int64, cleanup func(), err error) {
	if n <= 0 {
		n = DefaultSampleSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size = info.Size()

	data, unmap, err := MapFile(path)
	if err != nil {
		return nil, 0, nil, err
	}
	if len(data) > n {
		data = data[:n]
	}
	return data, size, unmap, nil
}
