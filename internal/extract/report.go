package extract

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/ossyrian/fjsysparse/internal/blockstore"
)

// ManifestName is the file written by WriteManifest.
const ManifestName = "manifest.json"

// Outcome describes what happened to one entry.
type Outcome string

const (
	// OutcomeDecoded means an asset was decoded to one or more images.
	OutcomeDecoded Outcome = "decoded"
	// OutcomeRaw means the entry was written verbatim.
	OutcomeRaw Outcome = "raw"
	// OutcomeFallback means decoding failed and raw bytes were written instead.
	OutcomeFallback Outcome = "fallback"
	// OutcomeFailed means nothing was written.
	OutcomeFailed Outcome = "failed"
)

// Output is one file written for an entry.
type Output struct {
	Path   string        `json:"path"` // relative to the output directory
	Size   int           `json:"size"`
	Digest digest.Digest `json:"digest"`
}

// AssetReport holds the header fields of an asset entry.
type AssetReport struct {
	Mode           string `json:"mode"`
	ModeByte       uint8  `json:"mode_byte"`
	Width          uint16 `json:"width"`
	Height         uint16 `json:"height"`
	ContentSize    uint32 `json:"content_size"`
	Sprites        int    `json:"sprites"`
	SkippedSprites int    `json:"skipped_sprites"`
}

// EntryReport describes the extraction of one entry.
type EntryReport struct {
	Index   int          `json:"index"`
	Name    string       `json:"name"`
	Offset  uint32       `json:"offset"`
	Size    uint32       `json:"size"`
	Asset   *AssetReport `json:"asset,omitempty"`
	Outcome Outcome      `json:"outcome"`
	Error   string       `json:"error,omitempty"`
	Outputs []Output     `json:"outputs,omitempty"`
}

// Report is the result of a Run.
type Report struct {
	Archive string        `json:"archive,omitempty"`
	Entries []EntryReport `json:"entries"`
}

// Count returns the number of entries with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// WriteManifest writes the report as JSON to ManifestName below out's root.
func WriteManifest(out *blockstore.Writer, r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	return out.WriteBytes(ManifestName, append(data, '\n'))
}
