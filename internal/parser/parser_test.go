package parser_test

import (
	"encoding/binary"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossyrian/fjsysparse/internal/fjsys"
	"github.com/ossyrian/fjsysparse/internal/parser"
	"github.com/ossyrian/fjsysparse/internal/testutil"
)

func newReader(data []byte) *parser.Reader {
	return parser.NewReader(
		testutil.NewMockByteSource(data),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

// record encodes one directory record.
func record(nameOffset, size, offset, terminator uint32) []byte {
	b := make([]byte, fjsys.RecordSize)
	binary.LittleEndian.PutUint32(b[0:], nameOffset)
	binary.LittleEndian.PutUint32(b[4:], size)
	binary.LittleEndian.PutUint32(b[8:], offset)
	binary.LittleEndian.PutUint32(b[12:], terminator)
	return b
}

func TestReader_Index(t *testing.T) {
	tests := []struct {
		name    string
		files   []testutil.File
		wantErr error
	}{
		{
			name: "three files",
			files: []testutil.File{
				{Name: "bg01.MGD", Data: []byte("asset bytes")},
				{Name: "voice.ogg", Data: []byte("OggS....")},
				{Name: "script.txt", Data: []byte("hello")},
			},
		},
		{
			name:  "no files",
			files: nil,
		},
		{
			name:  "zero length file",
			files: []testutil.File{{Name: "empty.bin", Data: nil}},
		},
		{
			name:    "empty filename",
			files:   []testutil.File{{Name: "", Data: []byte("x")}},
			wantErr: parser.ErrEmptyName,
		},
		{
			name:    "filename without terminator within limit",
			files:   []testutil.File{{Name: strings.Repeat("a", fjsys.MaxNameLength+10), Data: []byte("x")}},
			wantErr: parser.ErrUnterminatedName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testutil.BuildArchive(tt.files...)

			got, err := newReader(data).Index()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.files))

			for i, e := range got {
				assert.Equal(t, i, e.Index)
				assert.Equal(t, tt.files[i].Name, e.Name)
				assert.LessOrEqual(t, e.End(), int64(len(data)))
				assert.Equal(t, string(tt.files[i].Data), string(data[e.Offset:e.End()]))
			}
		})
	}
}

func TestReader_Scan(t *testing.T) {
	preamble := make([]byte, fjsys.DirectoryOffset)

	tests := []struct {
		name          string
		data          []byte
		wantCount     int
		wantNameTable int64
		wantErr       error
	}{
		{
			name:          "archive shorter than directory",
			data:          preamble[:40],
			wantCount:     0,
			wantNameTable: fjsys.DirectoryOffset,
		},
		{
			name: "directory truncated before terminator",
			data: concat(preamble,
				record(0, 4, 0, 0),
				record(0, 4, 4, 0)[:10],
			),
			wantCount:     1,
			wantNameTable: fjsys.DirectoryOffset + fjsys.RecordSize,
		},
		{
			name: "terminator stops scan",
			data: concat(preamble,
				record(0, 4, 0, 0),
				record(0, 4, 4, 0),
				record(1, 1, 1, 7),
				record(0, 4, 8, 0),
			),
			wantCount:     2,
			wantNameTable: fjsys.DirectoryOffset + 2*fjsys.RecordSize,
		},
		{
			name: "entry past end of archive",
			data: concat(preamble,
				record(0, 4, 0, 0),
				record(0, 1000, 50, 0),
				record(0, 0, 0, 1),
			),
			wantErr: parser.ErrEntryOutOfBounds,
		},
		{
			name: "entry exactly reaching end of archive",
			data: concat(preamble,
				record(0, 20, fjsys.DirectoryOffset+12, 0),
				record(0, 0, 0, 1),
			),
			wantCount:     1,
			wantNameTable: fjsys.DirectoryOffset + fjsys.RecordSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, nameTable, err := newReader(tt.data).Scan()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tt.wantCount)
			assert.Equal(t, tt.wantNameTable, nameTable)
			for _, e := range entries {
				assert.LessOrEqual(t, e.End(), int64(len(tt.data)))
			}
		})
	}
}

func TestReader_ReadName(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		offset  int64
		want    string
		wantErr error
	}{
		{name: "terminated", data: []byte("abc\x00def"), offset: 0, want: "abc"},
		{name: "second name", data: []byte("abc\x00def\x00"), offset: 4, want: "def"},
		{name: "cut short by end of archive", data: []byte("abc\x00def"), offset: 4, want: "def"},
		{name: "latin-1 bytes preserved", data: []byte{'c', 0xE9, 0xFF, 0}, offset: 0, want: "céÿ"},
		{name: "offset past end", data: []byte("abc"), offset: 10, want: ""},
		{
			name:    "no terminator within limit",
			data:    []byte(strings.Repeat("z", fjsys.MaxNameLength)),
			offset:  0,
			wantErr: parser.ErrUnterminatedName,
		},
		{
			name:   "terminator at limit boundary",
			data:   []byte(strings.Repeat("z", fjsys.MaxNameLength-1) + "\x00"),
			offset: 0,
			want:   strings.Repeat("z", fjsys.MaxNameLength-1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newReader(tt.data).ReadName(tt.offset)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
