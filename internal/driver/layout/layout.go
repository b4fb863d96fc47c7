// Package layout holds the bounded little-endian field readers shared by the
// advertisement drivers. Every reader checks its byte range first and
// reports ok=false instead of panicking on short payloads.
package layout

import "encoding/binary"

// Encoding describes how an event field is stored.
type Encoding int

const (
	U8 Encoding = iota
	I8
	U16
	I16
	U24
)

// Width returns the number of bytes the encoding occupies.
func (e Encoding) Width() int {
	switch e {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U24:
		return 3
	default:
		return 0
	}
}

// Field locates one numeric value relative to the start of an event body.
type Field struct {
	Offset   int
	Encoding Encoding
}

// InRange reports whether n bytes starting at offset lie inside payload.
func InRange(payload []byte, offset, n int) bool {
	return offset >= 0 && n >= 0 && offset+n <= len(payload)
}

// Uint8 reads one byte.
func Uint8(payload []byte, offset int) (uint8, bool) {
	if !InRange(payload, offset, 1) {
		return 0, false
	}
	return payload[offset], true
}

// Int8 reads one signed byte.
func Int8(payload []byte, offset int) (int8, bool) {
	v, ok := Uint8(payload, offset)
	return int8(v), ok
}

// Uint16 reads a little-endian uint16.
func Uint16(payload []byte, offset int) (uint16, bool) {
	if !InRange(payload, offset, 2) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(payload[offset : offset+2]), true
}

// Int16 reads a little-endian int16.
func Int16(payload []byte, offset int) (int16, bool) {
	v, ok := Uint16(payload, offset)
	return int16(v), ok
}

// Uint24 reads a little-endian three byte unsigned value.
func Uint24(payload []byte, offset int) (uint32, bool) {
	if !InRange(payload, offset, 3) {
		return 0, false
	}
	b := payload[offset : offset+3]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, true
}

// Read decodes f relative to base and widens the result to int64.
func Read(payload []byte, base int, f Field) (int64, bool) {
	offset := base + f.Offset
	width := f.Encoding.Width()
	if width == 0 || !InRange(payload, offset, width) {
		return 0, false
	}
	switch f.Encoding {
	case U8:
		v, ok := Uint8(payload, offset)
		return int64(v), ok
	case I8:
		v, ok := Int8(payload, offset)
		return int64(v), ok
	case U16:
		v, ok := Uint16(payload, offset)
		return int64(v), ok
	case I16:
		v, ok := Int16(payload, offset)
		return int64(v), ok
	case U24:
		v, ok := Uint24(payload, offset)
		return int64(v), ok
	default:
		return 0, false
	}
}

// Tenths reads f and divides it by ten.
func Tenths(payload []byte, base int, f Field) (float64, bool) {
	v, ok := Read(payload, base, f)
	if !ok {
		return 0, false
	}
	return float64(v) / 10, true
}
