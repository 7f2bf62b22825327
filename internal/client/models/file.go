package models

import (
	"os"
	"time"
)

// FileDescriptor is one file selected for upload, as recorded at selection
// time. Size, ModTime and Info are what the preflight check compares the
// file on disk against right before the upload starts.
type FileDescriptor struct {
	Name        string
	Path        string
	Size        int64
	ModTime     time.Time
	ContentType string

	// Info is the stat result taken at selection time; it carries the file
	// identity used by os.SameFile. May be nil for descriptors built by hand.
	Info os.FileInfo `json:"-"`

	// Chunks is filled by slicing right before the file is transmitted.
	Chunks []ChunkDescriptor `json:"-"`
}

// ChunkDescriptor is one contiguous byte range of a file.
type ChunkDescriptor struct {
	// Index is 1-based.
	Index  int
	Offset int64
	Length int64

	// Checksum is the hex digest of the chunk bytes. Empty until the chunk
	// is read for sending.
	Checksum string
}

// End returns the exclusive end offset of the chunk.
func (c ChunkDescriptor) End() int64 {
	return c.Offset + c.Length
}

// TotalSize sums the sizes of files.
func TotalSize(files []FileDescriptor) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}
