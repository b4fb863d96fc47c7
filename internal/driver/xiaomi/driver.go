package xiaomi

import (
	"fmt"

	"github.com/bitkill/hello-blea/internal/driver"
	"github.com/bitkill/hello-blea/internal/driver/layout"
	"github.com/bitkill/hello-blea/internal/frame"
	"github.com/bitkill/hello-blea/internal/reading"
)

const (
	name = "xiaomi"

	headerLen  = 4
	baseOffset = 5
	macOffset  = 5
	// event type (2) + event length (1)
	eventHeaderLen = 3
)

var serviceCodes = []string{"fe95"}

func init() {
	driver.Register(Driver{})
}

// Driver decodes MiBeacon service data. The layout after the four byte
// header (frame control, product id) depends on the frame control bits.
type Driver struct{}

var _ driver.Inspector = Driver{}

// Name returns the canonical driver name.
func (Driver) Name() string { return name }

// Claims implements driver.Driver.
func (Driver) Claims(service string) bool {
	return driver.MatchService(service, serviceCodes)
}

type header struct {
	control frame.Control
	device  uint16
}

func parseHeader(payload []byte) (header, bool) {
	control, ok := frame.ParseControl(payload)
	if !ok {
		return header{}, false
	}
	device, ok := layout.Uint16(payload, 2)
	if !ok {
		return header{}, false
	}
	return header{control: control, device: device}, true
}

// eventOffset returns where the event type sits. Only catalogued devices
// have the offset recomputed from the MAC and capability bits; unknown
// devices keep the base offset.
func (h header) eventOffset() int {
	offset := baseOffset
	if _, known := devices[h.device]; known {
		if h.control.Has(frame.HasMacAddress) {
			offset = macOffset + 6
		}
		if h.control.Has(frame.HasCapabilities) {
			offset++
		}
	}
	return offset
}

func (h header) decodable() bool {
	return !h.control.Has(frame.Encrypted) && h.control.Has(frame.HasEvent)
}

// Decode implements driver.Driver.
func (Driver) Decode(payload []byte) reading.Reading {
	h, ok := parseHeader(payload)
	if !ok || !h.decodable() {
		return reading.Empty{}
	}
	offset := h.eventOffset()
	code, ok := layout.Uint16(payload, offset)
	if !ok {
		return reading.Empty{}
	}
	rule, ok := eventRules[eventType(code)]
	if !ok {
		return reading.Empty{}
	}
	r, ok := rule(payload, offset+eventHeaderLen)
	if !ok {
		return reading.Empty{}
	}
	return r
}

// Inspect implements driver.Inspector.
func (Driver) Inspect(payload []byte) map[string]any {
	fields := map[string]any{}
	h, ok := parseHeader(payload)
	if !ok {
		fields["error"] = fmt.Sprintf("payload too short: %d bytes", len(payload))
		return fields
	}
	fields["device"] = fmt.Sprintf("0x%04X", h.device)
	fields["version"] = int(h.control.Version())
	fields["flags"] = h.control.SetFlags()
	if model, known := devices[h.device]; known {
		fields["model"] = model
	}
	if h.control.Has(frame.HasMacAddress) {
		if mac, ok := frame.MACAt(payload, macOffset); ok {
			fields["mac"] = mac
		}
	}
	if !h.decodable() {
		return fields
	}
	if code, ok := layout.Uint16(payload, h.eventOffset()); ok {
		fields["event"] = eventType(code).String()
		fields["event_code"] = fmt.Sprintf("0x%04X", code)
	}
	return fields
}
