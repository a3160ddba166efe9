package source

import "sync"

// chunkPool recycles chunk buffers across short-lived readers; batch runs
// open one ChunkReader per file and this keeps them from re-allocating the
// same 8KB over and over.
var chunkPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, DefaultChunkSize)
		return &b
	},
}

// getChunkBuffer returns a buffer of at least the requested size. Pooled
// buffers only serve the default size; odd sizes allocate directly.
func getChunkBuffer(size int) []byte {
	if size != DefaultChunkSize {
		return make([]byte, size)
	}
	p := chunkPool.Get().(*[]byte)
	return *p
}

// putChunkBuffer returns a buffer to the pool. Buffers of non-default size
// are dropped rather than kept alive.
func putChunkBuffer(buf []byte) {
	if cap(buf) != DefaultChunkSize {
		return
	}
	buf = buf[:DefaultChunkSize]
	chunkPool.Put(&buf)
}
