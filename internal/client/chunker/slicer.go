// Package chunker splits files into fixed-size chunks and computes the
// per-chunk digests the server verifies on receipt.
package chunker

import (
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/dsuploader/internal/client/models"
)

var (
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrInvalidFileSize  = errors.New("file size must not be negative")
	ErrShortRead        = errors.New("file shorter than recorded size")
)

// Slice splits a file of the given size into ceil(size/chunkSize) contiguous
// ranges numbered from 1. The last range may be shorter than chunkSize.
//
// A file smaller than one chunk yields exactly one chunk; so does an empty
// file, as a single zero-length chunk, so the server still learns about it.
func Slice(size, chunkSize int64) ([]models.ChunkDescriptor, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if size < 0 {
		return nil, ErrInvalidFileSize
	}

	n := Count(size, chunkSize)
	chunks := make([]models.ChunkDescriptor, 0, n)

	for i := 0; i < n; i++ {
		offset := int64(i) * chunkSize
		chunks = append(chunks, models.ChunkDescriptor{
			Index:  i + 1,
			Offset: offset,
			Length: min(chunkSize, size-offset),
		})
	}

	return chunks, nil
}

// Count returns the number of chunks Slice produces for size. chunkSize
// must be positive.
func Count(size, chunkSize int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// ReadChunk reads the bytes of c from r into buf, growing it if needed, and
// returns the filled slice. A file that ends before c does returns
// ErrShortRead.
func ReadChunk(r io.ReaderAt, c models.ChunkDescriptor, buf []byte) ([]byte, error) {
	if int64(cap(buf)) < c.Length {
		buf = make([]byte, c.Length)
	}
	buf = buf[:c.Length]

	n, err := r.ReadAt(buf, c.Offset)
	if int64(n) == c.Length {
		// ReadAt may report io.EOF together with a full read at the end of file
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("chunk %d: %w", c.Index, ErrShortRead)
	}
	return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
}
