package fjsys

// Archive directory layout.
const (
	// DirectoryOffset is where the first directory record starts.
	DirectoryOffset = 84
	// RecordSize is the size of one directory record.
	RecordSize = 16
	// RecordTerminatorOffset is the position of the terminator field inside a record.
	// A record is only valid while this field is zero.
	RecordTerminatorOffset = 12
	// MaxNameLength caps a filename read when no NUL terminator is found.
	MaxNameLength = 4096
)

// AssetExtension identifies asset entries (compared case-insensitively).
const AssetExtension = "MGD"

// Asset header layout, relative to the start of the entry.
const (
	HeaderSize          = 96
	ResolutionXOffset   = 12
	ResolutionYOffset   = 14
	BufferSizeOffset    = 16
	AssetModeOffset     = 24
	ContentSizeOffset   = 92
	ContentRegionOffset = HeaderSize
)

// Sprite atlas layout, relative to the end of the content region.
const (
	SpriteCountOffset = 8
	SpriteRectsOffset = 12
	SpriteRectSize    = 8
)

// BytesPerPixel is the size of one ARGB sample in a Mode-1 pixel run.
const BytesPerPixel = 4
