// Package localio provides file-backed implementations of the transfer
// capability interfaces: a ByteSource reading byte ranges out of local
// files and a ChunkSink writing transfers into a directory with a
// running integrity digest.
package localio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrDirectoryTraversal indicates an attempt to access files outside
// allowed directories.
var ErrDirectoryTraversal = errors.New("path contains directory traversal")

// ValidatePath checks if a file path is safe from directory traversal
// attacks. It returns the cleaned path or an error if the path contains
// traversal attempts.
func ValidatePath(path string) (string, error) {
	cleaned := filepath.Clean(path)

	if strings.Contains(cleaned, "..") {
		return "", ErrDirectoryTraversal
	}

	if filepath.IsAbs(cleaned) {
		for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
			if part == ".." {
				return "", ErrDirectoryTraversal
			}
		}
	}

	return cleaned, nil
}

// FileSource reads byte ranges out of files on the local filesystem.
// Each read opens the file, reads exactly the requested range, and
// closes it again, so repeated reads of the same range are idempotent
// and no handles are held between chunks.
type FileSource struct{}

// NewFileSource creates a filesystem-backed byte source.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Length returns the size in bytes of the named file, for use as the
// total length at registration.
func (s *FileSource) Length(name string) (int64, error) {
	safe, err := ValidatePath(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(safe)
	if err != nil {
		return 0, fmt.Errorf("stat %q: %w", safe, err)
	}
	return info.Size(), nil
}

// ReadRange returns the bytes of the named file in [left, right). A
// short read is an error; the transfer store maps it to its read
// failure taxonomy.
func (s *FileSource) ReadRange(name string, left, right int64) ([]byte, error) {
	if left < 0 || right < left {
		return nil, fmt.Errorf("invalid range [%d,%d)", left, right)
	}

	safe, err := ValidatePath(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(safe)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "ReadRange",
			"source_name": safe,
			"error":       err.Error(),
		}).Error("Failed to open source file")
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, right-left)
	if _, err := f.ReadAt(buf, left); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "ReadRange",
			"source_name": safe,
			"left":        left,
			"right":       right,
			"error":       err.Error(),
		}).Error("Failed to read source range")
		return nil, fmt.Errorf("read %q [%d,%d): %w", safe, left, right, err)
	}

	return buf, nil
}
