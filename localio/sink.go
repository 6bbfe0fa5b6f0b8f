package localio

import (
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/opd-ai/pullsync/transfer"
)

// DirSink writes each transfer into its own file under a directory.
// Every session keeps a running BLAKE2b-256 digest of the bytes written
// and logs it at close, giving the durable copy an integrity artifact.
type DirSink struct {
	dir string
}

// NewDirSink creates a sink rooted at dir, creating it if needed.
func NewDirSink(dir string) (*DirSink, error) {
	safe, err := ValidatePath(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(safe, 0o755); err != nil {
		return nil, fmt.Errorf("create sink directory %q: %w", safe, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewDirSink",
		"dir":      safe,
	}).Info("Directory sink created")

	return &DirSink{dir: safe}, nil
}

// Open begins a write session backed by a file named after the
// transfer. Only the base of the suggested name is used, so a sink
// session can never escape the directory.
func (d *DirSink) Open(name string) (transfer.SinkSession, error) {
	path := filepath.Join(d.dir, filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Open",
			"path":     path,
			"error":    err.Error(),
		}).Error("Failed to create sink file")
		return nil, err
	}

	digest, err := blake2b.New256(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("init digest: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"path":     path,
	}).Debug("Sink session opened")

	return &fileSession{path: path, file: f, digest: digest}, nil
}

// fileSession writes one transfer's chunks to a single file.
type fileSession struct {
	path    string
	file    *os.File
	digest  hash.Hash
	written int64
}

// WriteChunk appends a chunk to the output file and folds it into the
// running digest.
func (s *fileSession) WriteChunk(chunk []byte) error {
	n, err := s.file.Write(chunk)
	s.written += int64(n)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "WriteChunk",
			"path":     s.path,
			"error":    err.Error(),
		}).Error("Failed to write chunk to sink file")
		return err
	}
	s.digest.Write(chunk)
	return nil
}

// Close releases the file and logs the final digest of everything
// written, whether the transfer completed or was abandoned.
func (s *fileSession) Close() error {
	err := s.file.Close()

	logrus.WithFields(logrus.Fields{
		"function": "Close",
		"path":     s.path,
		"written":  s.written,
		"blake2b":  hex.EncodeToString(s.digest.Sum(nil)),
	}).Info("Sink session closed")

	return err
}
