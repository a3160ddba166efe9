//go:build !unix

package source

import (
	"fmt"
	"os"
)

// MapFile reads the whole file on platforms without mmap support. The
// cleanup function is a no-op kept for interface symmetry with the unix
// implementation.
func MapFile(path string) ([]byte, func(), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, func() {}, nil
}
