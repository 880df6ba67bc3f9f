package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/encoding/charmap"

	"github.com/ossyrian/fjsysparse/internal/blockstore"
	"github.com/ossyrian/fjsysparse/internal/fjsys"
)

var (
	// ErrEntryOutOfBounds is returned when a directory record points past the end of the archive.
	ErrEntryOutOfBounds = errors.New("entry exceeds archive bounds")
	// ErrUnterminatedName is returned when a filename runs past fjsys.MaxNameLength.
	ErrUnterminatedName = errors.New("filename exceeds maximum length")
	// ErrEmptyName is returned when a filename resolves to the empty string,
	// which means the directory and filename table are misaligned.
	ErrEmptyName = errors.New("empty filename")
)

// Reader reads the directory of an FJSYS archive.
type Reader struct {
	src    blockstore.Source
	logger *slog.Logger
}

// NewReader creates a Reader over src. A nil logger uses slog.Default().
func NewReader(src blockstore.Source, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{src: src, logger: logger}
}

// Scan reads directory records starting at fjsys.DirectoryOffset until a record
// with a non-zero terminator field is found or the next terminator field would
// lie past the end of the archive.
//
// It also returns the filename table base, which is the start of the record
// slot where the scan stopped.
func (r *Reader) Scan() (entries []fjsys.DirectoryEntry, nameTableBase int64, err error) {
	size := r.src.Size()

	for i := 0; ; i++ {
		recordOffset := int64(fjsys.DirectoryOffset) + int64(i)*fjsys.RecordSize
		terminatorOffset := recordOffset + fjsys.RecordTerminatorOffset

		if terminatorOffset+4 > size {
			r.logger.Debug("directory terminator exceeds archive size, ending scan",
				"index", i,
				"terminator_offset", terminatorOffset,
				"archive_size", size,
			)
			return entries, recordOffset, nil
		}

		record, err := blockstore.ReadBytes(r.src, recordOffset, fjsys.RecordSize)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read directory record %d: %w", i, err)
		}

		terminator, _ := fjsys.Uint32At(record, fjsys.RecordTerminatorOffset)
		if terminator != 0 {
			r.logger.Debug("found directory terminator",
				"index", i,
				"value", terminator,
			)
			return entries, recordOffset, nil
		}

		entry := fjsys.DirectoryEntry{Index: i}
		entry.FilenameOffset, _ = fjsys.Uint32At(record, 0)
		entry.Size, _ = fjsys.Uint32At(record, 4)
		entry.Offset, _ = fjsys.Uint32At(record, 8)

		if entry.End() > size {
			return nil, 0, fmt.Errorf("%w: entry %d spans [%d, %d), archive size %d",
				ErrEntryOutOfBounds, i, entry.Offset, entry.End(), size)
		}

		entries = append(entries, entry)
	}
}

// ReadName reads the NUL-terminated filename at offset.
// A name cut short by the end of the archive is returned as-is.
func (r *Reader) ReadName(offset int64) (string, error) {
	n := min(int64(fjsys.MaxNameLength), r.src.Size()-offset)
	if n <= 0 {
		return "", nil
	}

	raw, err := blockstore.ReadBytes(r.src, offset, n)
	if err != nil {
		return "", fmt.Errorf("failed to read filename at offset %d: %w", offset, err)
	}

	if end := bytes.IndexByte(raw, 0); end >= 0 {
		raw = raw[:end]
	} else if n == fjsys.MaxNameLength {
		return "", fmt.Errorf("%w: offset %d, limit %d", ErrUnterminatedName, offset, fjsys.MaxNameLength)
	}

	name, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode filename at offset %d: %w", offset, err)
	}
	return string(name), nil
}

// ResolveNames fills in the Name of every entry from the filename table at nameTableBase.
func (r *Reader) ResolveNames(entries []fjsys.DirectoryEntry, nameTableBase int64) error {
	for i := range entries {
		e := &entries[i]

		name, err := r.ReadName(nameTableBase + int64(e.FilenameOffset))
		if err != nil {
			return fmt.Errorf("entry %d: %w", e.Index, err)
		}
		if name == "" {
			return fmt.Errorf("%w: entry %d, name offset %d", ErrEmptyName, e.Index, e.FilenameOffset)
		}
		e.Name = name

		r.logger.Debug("read directory entry",
			"index", e.Index,
			"name", e.Name,
			"size", e.Size,
			"offset", e.Offset,
		)
	}
	return nil
}

// Index scans the directory and resolves every filename.
func (r *Reader) Index() ([]fjsys.DirectoryEntry, error) {
	entries, nameTableBase, err := r.Scan()
	if err != nil {
		return nil, err
	}

	if err := r.ResolveNames(entries, nameTableBase); err != nil {
		return nil, err
	}

	r.logger.Info("read directory",
		"entry_count", len(entries),
		"name_table_offset", nameTableBase,
	)

	return entries, nil
}
