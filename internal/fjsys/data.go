package fjsys

import "encoding/binary"

// Uint16At reads a little-endian uint16 at off.
// ok is false if the field does not fit inside b.
func Uint16At(b []byte, off int) (v uint16, ok bool) {
	if off < 0 || off > len(b)-2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b[off:]), true
}

// Int16At reads a little-endian int16 at off.
func Int16At(b []byte, off int) (int16, bool) {
	v, ok := Uint16At(b, off)
	return int16(v), ok
}

// Uint32At reads a little-endian uint32 at off.
// ok is false if the field does not fit inside b.
func Uint32At(b []byte, off int) (v uint32, ok bool) {
	if off < 0 || off > len(b)-4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[off:]), true
}

