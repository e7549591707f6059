// Package filex holds small filesystem helpers for the data directory and
// for files picked for upload.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MaxUploadSize bounds files accepted by ReadUpload.
const MaxUploadSize = 10 << 20

// ErrNotRegularFile is returned by ReadUpload for directories and devices.
var ErrNotRegularFile = errors.New("not a regular file")

// ErrTooLarge is returned by ReadUpload for files above MaxUploadSize.
var ErrTooLarge = errors.New("file too large")

// EnsureDir creates dir and its parents if needed and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// Upload is an opened file ready to be streamed to the upload endpoint.
// The caller closes it.
type Upload struct {
	*os.File
	Name string
	Size int64
}

// ReadUpload opens path for upload after checking it is a regular file no
// larger than MaxUploadSize.
func ReadUpload(path string) (*Upload, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}
	if fi.Size() > MaxUploadSize {
		return nil, fmt.Errorf("%s (%d bytes): %w", path, fi.Size(), ErrTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &Upload{File: f, Name: filepath.Base(path), Size: fi.Size()}, nil
}
