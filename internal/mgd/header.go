// Package mgd decodes MGD image assets stored in FJSYS archives.
//
// An asset is a 96-byte header, a content region of ContentSize bytes and an
// optional sprite atlas after the content region:
//
//	[header(96)][content(ContentSize)][pad(8)][count(u16)][pad(2)][rect(8)]...
//
// All offsets are relative to the start of the asset and every read is
// bounded by the asset's own byte range.
package mgd

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ossyrian/fjsysparse/internal/fjsys"
)

var (
	// ErrMissingContentSize is returned when the asset is too short to hold the content size field.
	ErrMissingContentSize = errors.New("mgd: content size field missing")
	// ErrContentOutOfBounds is returned when the content region extends past the asset.
	ErrContentOutOfBounds = errors.New("mgd: content region exceeds asset")
)

// ParseHeader reads the fixed header fields of asset.
// ContentSize is the last header field, so an asset long enough to hold it
// holds the whole header; anything shorter is ErrMissingContentSize.
func ParseHeader(asset []byte) (fjsys.AssetHeader, error) {
	if len(asset) < fjsys.ContentSizeOffset+4 {
		return fjsys.AssetHeader{}, fmt.Errorf("%w: asset is %d bytes", ErrMissingContentSize, len(asset))
	}

	le := binary.LittleEndian
	return fjsys.AssetHeader{
		ResolutionX: le.Uint16(asset[fjsys.ResolutionXOffset:]),
		ResolutionY: le.Uint16(asset[fjsys.ResolutionYOffset:]),
		BufferSize:  le.Uint32(asset[fjsys.BufferSizeOffset:]),
		Mode:        fjsys.AssetMode(asset[fjsys.AssetModeOffset]),
		ContentSize: le.Uint32(asset[fjsys.ContentSizeOffset:]),
	}, nil
}

// ContentRegion returns the content bytes of asset.
func ContentRegion(asset []byte, h fjsys.AssetHeader) ([]byte, error) {
	end := h.ContentEnd()
	if end > int64(len(asset)) {
		return nil, fmt.Errorf("%w: content ends at %d, asset is %d bytes",
			ErrContentOutOfBounds, end, len(asset))
	}
	return asset[fjsys.ContentRegionOffset:end], nil
}
