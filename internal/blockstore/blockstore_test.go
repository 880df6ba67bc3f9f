package blockstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	*bytes.Reader
}

func newMemSource(b []byte) memSource { return memSource{bytes.NewReader(b)} }

func TestReadBytes(t *testing.T) {
	src := newMemSource([]byte("0123456789"))

	tests := []struct {
		name    string
		offset  int64
		length  int64
		want    []byte
		wantErr bool
	}{
		{name: "middle", offset: 2, length: 3, want: []byte("234")},
		{name: "whole", offset: 0, length: 10, want: []byte("0123456789")},
		{name: "empty at end", offset: 10, length: 0, want: []byte{}},
		{name: "past end", offset: 8, length: 3, wantErr: true},
		{name: "offset past end", offset: 11, length: 0, wantErr: true},
		{name: "negative offset", offset: -1, length: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadBytes(src, tt.offset, tt.length)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrShortRead)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.bin")
	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0o644))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(6), f.Size())

	got, err := ReadBytes(f, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("ef"), got)
}

func TestWriter_WriteBytes(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root)

	path, err := w.WriteBytes("a/b/c.bin", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b", "c.bin"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestWriter_DryRun(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, WithDryRun(true))

	path, err := w.WriteBytes("x/y.bin", []byte{1})
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
