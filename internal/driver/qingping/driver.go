package qingping

import (
	"fmt"

	"github.com/bitkill/hello-blea/internal/driver"
	"github.com/bitkill/hello-blea/internal/driver/layout"
	"github.com/bitkill/hello-blea/internal/frame"
	"github.com/bitkill/hello-blea/internal/reading"
)

const (
	name = "qingping"

	deviceOffset = 1
	macOffset    = 5
	eventOffset  = 8
	dataOffset   = 10

	eventTempAndHumidity = 0x01
	eventBattery         = 0x02
	eventPressure        = 0x07
)

var serviceCodes = []string{"fff9", "fdcd"}

// devices is informational only; the layout does not depend on the model.
var devices = map[uint16]string{
	0x01: "CGG1",
	0x07: "CGG1",
	0x09: "CGP1W",
	0x0C: "CGD1",
	0x10: "CGDK2",
}

func init() {
	driver.Register(Driver{})
}

// Driver decodes Qingping service data, whose fields sit at fixed offsets
// regardless of any flag bits.
type Driver struct{}

var _ driver.Inspector = Driver{}

// Name returns the canonical driver name.
func (Driver) Name() string { return name }

// Claims implements driver.Driver.
func (Driver) Claims(service string) bool {
	return driver.MatchService(service, serviceCodes)
}

// Decode implements driver.Driver.
func (Driver) Decode(payload []byte) reading.Reading {
	event, ok := layout.Uint8(payload, eventOffset)
	if !ok {
		return reading.Empty{}
	}
	switch event {
	case eventTempAndHumidity:
		temp, ok := layout.Tenths(payload, dataOffset, layout.Field{Offset: 0, Encoding: layout.I16})
		if !ok {
			return reading.Empty{}
		}
		hum, ok := layout.Tenths(payload, dataOffset, layout.Field{Offset: 2, Encoding: layout.U16})
		if !ok {
			return reading.Empty{}
		}
		return reading.TemperatureAndHumidity{Temperature: temp, Humidity: hum}
	case eventBattery:
		charge, ok := layout.Uint8(payload, dataOffset)
		if !ok {
			return reading.Empty{}
		}
		return reading.Battery{Charge: charge}
	case eventPressure:
		pressure, ok := layout.Uint16(payload, dataOffset)
		if !ok {
			return reading.Empty{}
		}
		return reading.Pressure{Pressure: pressure}
	default:
		return reading.Empty{}
	}
}

// Inspect implements driver.Inspector.
func (Driver) Inspect(payload []byte) map[string]any {
	fields := map[string]any{}
	if id, ok := layout.Uint8(payload, deviceOffset); ok {
		fields["device"] = fmt.Sprintf("0x%02X", id)
		if model, known := devices[uint16(id)]; known {
			fields["model"] = model
		}
	}
	if mac, ok := frame.MACAt(payload, macOffset); ok {
		fields["mac"] = mac
	}
	if event, ok := layout.Uint8(payload, eventOffset); ok {
		fields["event_code"] = fmt.Sprintf("0x%02X", event)
	}
	return fields
}
