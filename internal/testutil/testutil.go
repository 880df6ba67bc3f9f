// Package testutil builds FJSYS archives and MGD assets in memory for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ossyrian/fjsysparse/internal/fjsys"
)

// MockByteSource implements blockstore.Source over a byte slice.
type MockByteSource struct {
	data []byte
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// File is one blob stored in a test archive.
type File struct {
	Name string
	Data []byte
}

// nameTablePad is the slot after the last record. Its terminator field is
// non-zero so the directory scan stops there.
var nameTablePad = []byte{
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF,
}

// BuildArchive lays out an archive: an 84-byte preamble, one directory
// record per file, the filename table and then the file data.
func BuildArchive(files ...File) []byte {
	names := new(bytes.Buffer)
	names.Write(nameTablePad)
	nameOffsets := make([]uint32, len(files))
	for i, f := range files {
		nameOffsets[i] = uint32(names.Len())
		names.WriteString(f.Name)
		names.WriteByte(0)
	}

	dataStart := fjsys.DirectoryOffset + len(files)*fjsys.RecordSize + names.Len()

	buf := new(bytes.Buffer)
	preamble := make([]byte, fjsys.DirectoryOffset)
	copy(preamble, "FJSYS")
	buf.Write(preamble)

	offset := dataStart
	for i, f := range files {
		binary.Write(buf, binary.LittleEndian, nameOffsets[i])
		binary.Write(buf, binary.LittleEndian, uint32(len(f.Data)))
		binary.Write(buf, binary.LittleEndian, uint32(offset))
		binary.Write(buf, binary.LittleEndian, uint32(0))
		offset += len(f.Data)
	}

	buf.Write(names.Bytes())
	for _, f := range files {
		buf.Write(f.Data)
	}
	return buf.Bytes()
}

// Asset describes an MGD asset to build.
type Asset struct {
	ResolutionX uint16
	ResolutionY uint16
	BufferSize  uint32
	Mode        fjsys.AssetMode
	Content     []byte

	// ContentSize overrides len(Content) in the header when non-nil.
	ContentSize *uint32

	Rects []fjsys.SpriteRect
	// SpriteCount overrides len(Rects) in the atlas when non-nil.
	SpriteCount *uint16
	// NoAtlas omits the trailing sprite atlas entirely.
	NoAtlas bool
}

// Build serialises the asset.
func (a Asset) Build() []byte {
	header := make([]byte, fjsys.HeaderSize)
	copy(header, "MGD ")
	binary.LittleEndian.PutUint16(header[fjsys.ResolutionXOffset:], a.ResolutionX)
	binary.LittleEndian.PutUint16(header[fjsys.ResolutionYOffset:], a.ResolutionY)
	binary.LittleEndian.PutUint32(header[fjsys.BufferSizeOffset:], a.BufferSize)
	header[fjsys.AssetModeOffset] = byte(a.Mode)

	contentSize := uint32(len(a.Content))
	if a.ContentSize != nil {
		contentSize = *a.ContentSize
	}
	binary.LittleEndian.PutUint32(header[fjsys.ContentSizeOffset:], contentSize)

	buf := bytes.NewBuffer(header)
	buf.Write(a.Content)

	if a.NoAtlas {
		return buf.Bytes()
	}

	count := uint16(len(a.Rects))
	if a.SpriteCount != nil {
		count = *a.SpriteCount
	}
	buf.Write(make([]byte, fjsys.SpriteCountOffset))
	binary.Write(buf, binary.LittleEndian, count)
	buf.Write(make([]byte, fjsys.SpriteRectsOffset-fjsys.SpriteCountOffset-2))
	for _, r := range a.Rects {
		binary.Write(buf, binary.LittleEndian, r)
	}
	return buf.Bytes()
}

// ARGBContent builds a Mode-1 content region: a length-prefixed inner
// header followed by a length-prefixed pixel run.
func ARGBContent(innerHeader, pixels []byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint32(len(innerHeader)))
	buf.Write(innerHeader)
	binary.Write(buf, binary.LittleEndian, uint32(len(pixels)))
	buf.Write(pixels)
	return buf.Bytes()
}

// SolidARGB returns w*h copies of the ARGB sample px.
func SolidARGB(w, h int, px [4]byte) []byte {
	return bytes.Repeat(px[:], w*h)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
