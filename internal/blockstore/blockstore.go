// Package blockstore provides bounded reads from a random-access archive
// and writes of extracted files below an output directory.
package blockstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrShortRead is returned when fewer bytes are available than requested.
var ErrShortRead = errors.New("blockstore: short read")

// Source provides random access to an archive.
// Implementations must be safe for concurrent ReadAt calls.
type Source interface {
	io.ReaderAt
	Size() int64
}

// File is a Source backed by an open file.
type File struct {
	f    *os.File
	size int64
}

// Open opens path as a Source. The size is captured once at open time.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &File{f: f, size: info.Size()}, nil
}

func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.f.ReadAt(p, off) }
func (f *File) Size() int64                               { return f.size }
func (f *File) Close() error                              { return f.f.Close() }

// ReadBytes reads exactly length bytes at offset from src.
// It fails with ErrShortRead if the range extends past the end of src.
func ReadBytes(src Source, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset > src.Size() || length > src.Size()-offset {
		return nil, fmt.Errorf("%w: %d bytes at offset %d (size %d)", ErrShortRead, length, offset, src.Size())
	}

	buf := make([]byte, length)
	n, err := src.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", length, offset, err)
	}
	if int64(n) != length {
		return nil, fmt.Errorf("%w: got %d of %d bytes at offset %d", ErrShortRead, n, length, offset)
	}
	return buf, nil
}

// Writer writes files below a root directory.
type Writer struct {
	root   string
	dryRun bool
	logger *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithDryRun makes the writer log writes without touching the filesystem.
func WithDryRun(dryRun bool) WriterOption {
	return func(w *Writer) {
		w.dryRun = dryRun
	}
}

// WithLogger sets the logger used for write events.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter creates a Writer rooted at root.
func NewWriter(root string, opts ...WriterOption) *Writer {
	w := &Writer{
		root:   root,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the output directory.
func (w *Writer) Root() string { return w.root }

// WriteBytes writes data to rel (slash separated, relative to the root),
// creating parent directories as needed. It returns the full path written.
func (w *Writer) WriteBytes(rel string, data []byte) (string, error) {
	dest := filepath.Join(w.root, filepath.FromSlash(rel))

	if w.dryRun {
		w.logger.Debug("dry run, skipping write", "path", dest, "size", len(data))
		return dest, nil
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}

	w.logger.Debug("wrote file", "path", dest, "size", len(data))
	return dest, nil
}
