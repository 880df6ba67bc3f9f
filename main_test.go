package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossyrian/fjsysparse/internal/config"
	"github.com/ossyrian/fjsysparse/internal/extract"
	"github.com/ossyrian/fjsysparse/internal/fjsys"
	"github.com/ossyrian/fjsysparse/internal/parser"
	"github.com/ossyrian/fjsysparse/internal/testutil"
)

func writeArchive(t *testing.T, files ...testutil.File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.fjsys")
	require.NoError(t, os.WriteFile(path, testutil.BuildArchive(files...), 0o644))
	return path
}

func TestExtractArchive(t *testing.T) {
	input := writeArchive(t,
		testutil.File{Name: "bg.MGD", Data: testutil.Asset{
			ResolutionX: 2,
			ResolutionY: 1,
			Mode:        fjsys.AssetModeARGB,
			Content:     testutil.ARGBContent(nil, testutil.SolidARGB(2, 1, [4]byte{0xFF, 1, 2, 3})),
		}.Build()},
		testutil.File{Name: "readme.txt", Data: []byte("hi")},
	)
	out := filepath.Join(t.TempDir(), "out")

	err := extractArchive(t.Context(), &config.Config{
		InputFile: input,
		OutputDir: out,
		Workers:   2,
		Manifest:  true,
		Strict:    true,
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "bg.bmp"))
	assert.FileExists(t, filepath.Join(out, "readme.txt"))
	assert.FileExists(t, filepath.Join(out, extract.ManifestName))
}

func TestExtractArchive_Strict(t *testing.T) {
	input := writeArchive(t,
		testutil.File{Name: "short.MGD", Data: []byte("too short")},
	)

	cfg := &config.Config{InputFile: input, OutputDir: t.TempDir()}
	require.NoError(t, extractArchive(t.Context(), cfg))

	cfg.Strict = true
	require.ErrorIs(t, extractArchive(t.Context(), cfg), errFailedEntries)
}

func TestExtractArchive_Corrupt(t *testing.T) {
	data := testutil.BuildArchive(testutil.File{Name: "x.bin", Data: []byte("payload")})
	// grow the first entry past the end of the archive
	data[fjsys.DirectoryOffset+4] = 0xFF
	data[fjsys.DirectoryOffset+5] = 0xFF

	input := filepath.Join(t.TempDir(), "bad.fjsys")
	require.NoError(t, os.WriteFile(input, data, 0o644))

	err := extractArchive(t.Context(), &config.Config{InputFile: input, OutputDir: t.TempDir()})
	require.ErrorIs(t, err, parser.ErrEntryOutOfBounds)
}

func TestExtractArchive_DryRun(t *testing.T) {
	input := writeArchive(t, testutil.File{Name: "readme.txt", Data: []byte("hi")})
	out := filepath.Join(t.TempDir(), "out")

	err := extractArchive(t.Context(), &config.Config{InputFile: input, OutputDir: out, DryRun: true})
	require.NoError(t, err)

	assert.NoDirExists(t, out)
}

func TestExtractArchive_ManifestNameTaken(t *testing.T) {
	input := writeArchive(t,
		testutil.File{Name: extract.ManifestName, Data: []byte(`{"stale":true}`)},
		testutil.File{Name: "readme.txt", Data: []byte("hi")},
	)
	out := filepath.Join(t.TempDir(), "out")

	err := extractArchive(t.Context(), &config.Config{InputFile: input, OutputDir: out, Manifest: true})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, extract.ManifestName))
	require.NoError(t, err)

	var report extract.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "data.fjsys", report.Archive)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, extract.OutcomeFailed, report.Entries[0].Outcome)
	assert.Contains(t, report.Entries[0].Error, extract.ErrOutputConflict.Error())
}
