// Package fjsys describes the FJSYS archive and MGD asset wire formats.
package fjsys

import (
	"path"
	"strings"
)

// DirectoryEntry describes one blob in the archive.
//
// On disk a record is [filename_offset(u32)][size(u32)][offset(u32)][terminator(u32)],
// little-endian. Name is filled in once the filename table has been read.
type DirectoryEntry struct {
	Index          int
	FilenameOffset uint32 // relative to the filename table
	Size           uint32
	Offset         uint32 // absolute archive offset
	Name           string // decoded as ISO-8859-1
}

// End returns the absolute offset one past the last byte of the entry.
func (e DirectoryEntry) End() int64 { return int64(e.Offset) + int64(e.Size) }

// Ext returns the filename extension without the leading dot.
func (e DirectoryEntry) Ext() string {
	return strings.TrimPrefix(path.Ext(e.Name), ".")
}

// Basename returns the filename without its extension.
func (e DirectoryEntry) Basename() string {
	return strings.TrimSuffix(e.Name, path.Ext(e.Name))
}

// IsAsset reports whether the entry is an MGD asset.
func (e DirectoryEntry) IsAsset() bool {
	return strings.EqualFold(e.Ext(), AssetExtension)
}

// AssetMode selects how an asset's content region is decoded.
type AssetMode uint8

const (
	// AssetModeRaw (0x00) has no decoder; the asset is copied as-is.
	AssetModeRaw AssetMode = 0x00
	// AssetModeARGB (0x01) is an inline ARGB pixel buffer.
	AssetModeARGB AssetMode = 0x01
	// AssetModePNG (0x02) is an embedded image bitstream, usually PNG.
	AssetModePNG AssetMode = 0x02
)

func (m AssetMode) String() string {
	switch m {
	case AssetModeRaw:
		return "Raw"
	case AssetModeARGB:
		return "ARGB"
	case AssetModePNG:
		return "PNG"
	default:
		return "Unknown"
	}
}

// AssetHeader holds the fixed-offset header fields of an MGD asset.
type AssetHeader struct {
	ResolutionX uint16
	ResolutionY uint16
	BufferSize  uint32
	Mode        AssetMode
	ContentSize uint32
}

// ContentEnd returns the content region end, relative to the entry start.
func (h AssetHeader) ContentEnd() int64 {
	return ContentRegionOffset + int64(h.ContentSize)
}

// SpriteRect is one entry of the sprite atlas.
// [origin_x(i16)][origin_y(i16)][width(u16)][height(u16)]
type SpriteRect struct {
	OriginX int16
	OriginY int16
	Width   uint16
	Height  uint16
}
