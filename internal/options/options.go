package options

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// bluetoothBase is the Bluetooth SIG base UUID; 16 and 32-bit service codes
// are shorthand for it with the first group replaced.
var bluetoothBase = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// ParseService normalises a service identifier to the lower-case 128-bit
// string form drivers match against. It accepts a full UUID or a 16/32-bit
// short code, with or without a 0x prefix.
func ParseService(input string) (string, error) {
	clean := strings.Join(strings.Fields(input), "")
	if clean == "" {
		return "", fmt.Errorf("service identifier is empty")
	}
	if id, err := uuid.Parse(clean); err == nil {
		return id.String(), nil
	}
	short := strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	if len(short) != 4 && len(short) != 8 {
		return "", fmt.Errorf("service identifier %q is neither a UUID nor a 16/32-bit code", input)
	}
	code, err := strconv.ParseUint(short, 16, 32)
	if err != nil {
		return "", fmt.Errorf("invalid service code %q: %w", input, err)
	}
	return ExpandShort(uint32(code)).String(), nil
}

// ExpandShort places a 16 or 32-bit service code into the base UUID.
func ExpandShort(code uint32) uuid.UUID {
	id := bluetoothBase
	id[0] = byte(code >> 24)
	id[1] = byte(code >> 16)
	id[2] = byte(code >> 8)
	id[3] = byte(code)
	return id
}

// ShortCode returns the 16-bit code of an identifier derived from the base
// UUID. ok is false for vendor UUIDs and unparsable input.
func ShortCode(service string) (uint16, bool) {
	id, err := uuid.Parse(service)
	if err != nil {
		return 0, false
	}
	if id[0] != 0 || id[1] != 0 {
		return 0, false
	}
	for i := 4; i < len(id); i++ {
		if id[i] != bluetoothBase[i] {
			return 0, false
		}
	}
	return uint16(id[2])<<8 | uint16(id[3]), true
}
