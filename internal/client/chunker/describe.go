package chunker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"github.com/gabriel-vasile/mimetype"
)

var ErrNotRegularFile = errors.New("not a regular file")

// Describe records a file selected for upload: its name, size, modification
// time, identity and sniffed content type.
func Describe(path string) (models.FileDescriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return models.FileDescriptor{}, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(abs); err == nil {
		contentType = mt.String()
	}

	return models.FileDescriptor{
		Name:        info.Name(),
		Path:        abs,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: contentType,
		Info:        info,
	}, nil
}

// DescribeAll describes every path, failing on the first error.
func DescribeAll(paths []string) ([]models.FileDescriptor, error) {
	files := make([]models.FileDescriptor, 0, len(paths))
	for _, p := range paths {
		f, err := Describe(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
