package frame

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// ServiceData is one service-data advertisement element as handed over by
// the scanner: the advertising peripheral, the service UUID the payload is
// keyed by and the raw payload bytes.
type ServiceData struct {
	Address string
	Service string
	Payload []byte
}

// Control is the little-endian frame control word carried in the first two
// bytes of a flag-driven (MiBeacon style) payload.
type Control uint16

const (
	FactoryNew Control = 1 << iota
	Connected
	Central
	Encrypted
	HasMacAddress
	HasCapabilities
	HasEvent
	HasCustomData
	HasSubtitle
	HasBinding
)

var controlFlagDefs = []struct {
	mask Control
	key  string
}{
	{FactoryNew, "FactoryNew"},
	{Connected, "Connected"},
	{Central, "Central"},
	{Encrypted, "Encrypted"},
	{HasMacAddress, "HasMacAddress"},
	{HasCapabilities, "HasCapabilities"},
	{HasEvent, "HasEvent"},
	{HasCustomData, "HasCustomData"},
	{HasSubtitle, "HasSubtitle"},
	{HasBinding, "HasBinding"},
}

// ParseControl reads the frame control word. ok is false when the payload
// is shorter than two bytes.
func ParseControl(payload []byte) (Control, bool) {
	if len(payload) < 2 {
		return 0, false
	}
	return Control(binary.LittleEndian.Uint16(payload[0:2])), true
}

// Has reports whether every bit of mask is set.
func (c Control) Has(mask Control) bool {
	return c&mask == mask
}

// Version is the frame version stored in the high nibble of the second byte.
func (c Control) Version() byte {
	return byte(c >> 12)
}

// SetFlags lists the names of the bits that are set, in bit order.
func (c Control) SetFlags() []string {
	var names []string
	for _, def := range controlFlagDefs {
		if c&def.mask != 0 {
			names = append(names, def.key)
		}
	}
	return names
}

// MACString renders an on-air MAC address (least significant byte first)
// in display order as 12 lower-case hex digits.
func MACString(mac [6]byte) string {
	var reversed [6]byte
	for i := range mac {
		reversed[i] = mac[len(mac)-1-i]
	}
	return hex.EncodeToString(reversed[:])
}

// MACAt renders the six bytes at offset. ok is false when they do not fit.
func MACAt(payload []byte, offset int) (string, bool) {
	if offset < 0 || len(payload) < offset+6 {
		return "", false
	}
	var mac [6]byte
	copy(mac[:], payload[offset:offset+6])
	return MACString(mac), true
}

// DecodeHex parses a hex payload, tolerating whitespace, '|', '_' and ':'
// separators and an optional 0x prefix.
func DecodeHex(input string) ([]byte, error) {
	clean := stripSeparators(input)
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		clean = clean[2:]
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex payload must contain an even number of digits, got %d", len(clean))
	}
	decoded := make([]byte, len(clean)/2)
	if _, err := hex.Decode(decoded, []byte(clean)); err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return decoded, nil
}

// hexSeparators may appear between digits of a hex payload.
const hexSeparators = "|_:"

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(hexSeparators, r) {
			return -1
		}
		return r
	}, s)
}
