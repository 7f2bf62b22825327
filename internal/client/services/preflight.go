package services

import (
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"github.com/dmitrijs2005/dsuploader/internal/common"
)

var (
	errNotRegular   = errors.New("not a regular file")
	errSizeChanged  = errors.New("size changed")
	errModified     = errors.New("modified since selection")
	errFileReplaced = errors.New("replaced since selection")
)

// Preflight re-validates files against what was recorded when they were
// selected. The first mismatch is returned wrapped in common.ErrPreflight
// and names the file.
func Preflight(files []models.FileDescriptor) error {
	for _, f := range files {
		if err := checkFile(f); err != nil {
			return fmt.Errorf("%w: %s: %w", common.ErrPreflight, f.Name, err)
		}
	}
	return nil
}

func checkFile(f models.FileDescriptor) error {
	st, err := os.Stat(f.Path)
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return errNotRegular
	}
	if st.Size() != f.Size {
		return fmt.Errorf("%w: recorded %d, now %d", errSizeChanged, f.Size, st.Size())
	}
	if !f.ModTime.IsZero() && !st.ModTime().Equal(f.ModTime) {
		return errModified
	}
	if f.Info != nil && !os.SameFile(f.Info, st) {
		return errFileReplaced
	}
	return nil
}
