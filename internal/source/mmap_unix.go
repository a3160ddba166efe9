//go:build unix

package source

import (
	"fmt"
	"os"
	"syscall"
)

// MapFile memory-maps a file for reading and returns the mapped bytes plus a
// cleanup function that must be called to unmap them.
//
// Detection only touches a bounded prefix, so mapping beats reading: the OS
// pages in exactly what gets looked at, whatever the file size.
//
// Do not use the returned slice after calling cleanup.
func MapFile(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := stat.Size()
	if size == 0 {
		return []byte{}, func() { f.Close() }, nil
	}

	data, err := syscall.Mmap(
		int(f.Fd()),
		0,
		int(size),
		syscall.PROT_READ,
		syscall.MAP_SHARED,
	)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	cleanup := func() {
		_ = syscall.Munmap(data)
		f.Close()
	}
	return data, cleanup, nil
}
