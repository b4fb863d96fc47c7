package xiaomi

import (
	"github.com/bitkill/hello-blea/internal/driver/layout"
	"github.com/bitkill/hello-blea/internal/reading"
)

// devices maps the MiBeacon product id to a model name. Membership also
// decides whether the event offset is recomputed from the frame control
// bits, see eventOffset.
var devices = map[uint16]string{
	0x01AA: "LYWSDCGQ",
	0x045B: "LYWSD02",
	0x055B: "LYWSD03MMC",
	0x0098: "HHCCJCY01",
	0x03BC: "GCLS002",
	0x015D: "HHCCPOT002",
	0x040A: "WX08ZM",
	0x098B: "MCCGQ02HL",
	0x0083: "YM-K1501",
	0x0113: "YM-K1501EU",
	0x045C: "V-SK152",
	0x0863: "SJWS01LM",
	0x07F6: "MJYD02YL",
	0x03DD: "MUE4094RT",
	0x0A8D: "RTCGQ02LM",
	0x00DB: "MMC-T201-1",
	0x0489: "M1S-T500",
	0x0C3C: "CGC1",
	0x0576: "CGD1",
	0x066F: "CGDK2",
	0x0347: "CGG1",
	0x0B48: "CGG1-ENCRYPTED",
	0x03D6: "CGH1",
	0x0A83: "CGPR1",
	0x06D3: "MHO-C303",
	0x0387: "MHO-C401",
	0x02DF: "JQJCY01YM",
	0x0997: "JTYJGD03MI",
	0x1568: "K9B-1BTN",
	0x1569: "K9B-2BTN",
	0x0DFD: "K9B-3BTN",
	0x07BF: "YLAI003",
	0x0153: "YLYK01YL",
	0x068E: "YLYK01YL-FANCL",
	0x04E6: "YLYK01YL-VENFAN",
	0x03BF: "YLYB01YL-BHFRC",
	0x03B6: "YLKG07YL/YLKG08YL",
	0x069E: "ZNMS16LM",
	0x069F: "ZNMS17LM",
}

type eventType uint16

const (
	eventConnection       eventType = 0x0001
	eventPairing          eventType = 0x0002
	eventMotion           eventType = 0x0003
	eventFingerPrint      eventType = 0x0006
	eventLock             eventType = 0x000B
	eventMoveWithLight    eventType = 0x000F
	eventToothBrush       eventType = 0x0010
	eventRemote           eventType = 0x1001
	eventTemperature      eventType = 0x1004
	eventHumidity         eventType = 0x1006
	eventIlluminance      eventType = 0x1007
	eventMoisture         eventType = 0x1008
	eventSoilConductivity eventType = 0x1009
	eventBattery          eventType = 0x100A
	eventTempAndHumidity  eventType = 0x100D
	eventFormaldehyde     eventType = 0x1010
	eventSwitch           eventType = 0x1012
	eventConsumable       eventType = 0x1013
	eventMoisture2        eventType = 0x1014
	eventSmoke            eventType = 0x1015
	eventMotion2          eventType = 0x1017
	eventLightIntensity   eventType = 0x1018
	eventDoor             eventType = 0x1019
	eventBodyTemperature  eventType = 0x2000
)

var eventNames = map[eventType]string{
	eventConnection:       "Connection",
	eventPairing:          "Pairing",
	eventMotion:           "Motion",
	eventFingerPrint:      "FingerPrint",
	eventLock:             "Lock",
	eventMoveWithLight:    "MoveWithLight",
	eventToothBrush:       "ToothBrush",
	eventRemote:           "Remote",
	eventTemperature:      "Temperature",
	eventHumidity:         "Humidity",
	eventIlluminance:      "Illuminance",
	eventMoisture:         "Moisture",
	eventSoilConductivity: "SoilConductivity",
	eventBattery:          "Battery",
	eventTempAndHumidity:  "TemperatureAndHumidity",
	eventFormaldehyde:     "Formaldehyde",
	eventSwitch:           "Switch",
	eventConsumable:       "Consumable",
	eventMoisture2:        "Moisture2",
	eventSmoke:            "Smoke",
	eventMotion2:          "Motion2",
	eventLightIntensity:   "LightIntensity",
	eventDoor:             "Door",
	eventBodyTemperature:  "BodyTemperature",
}

func (e eventType) String() string {
	if label, ok := eventNames[e]; ok {
		return label
	}
	return "Unknown"
}

// Field positions are relative to the event body, which starts three bytes
// after the event type (two byte type, one byte length). Humidity-only
// events are read from the same bytes as temperature-only events.
var (
	fieldTemperature  = layout.Field{Offset: 0, Encoding: layout.I16}
	fieldHumidity     = layout.Field{Offset: 2, Encoding: layout.U16}
	fieldHumidityOnly = layout.Field{Offset: 0, Encoding: layout.U16}
	fieldBattery      = layout.Field{Offset: 0, Encoding: layout.U8}
	fieldIlluminance  = layout.Field{Offset: 0, Encoding: layout.U24}
	fieldMoisture     = layout.Field{Offset: 0, Encoding: layout.I8}
	fieldConductivity = layout.Field{Offset: 0, Encoding: layout.I16}
)

type eventRule func(payload []byte, body int) (reading.Reading, bool)

var eventRules = map[eventType]eventRule{
	eventBattery: func(p []byte, body int) (reading.Reading, bool) {
		v, ok := layout.Read(p, body, fieldBattery)
		return reading.Battery{Charge: uint8(v)}, ok
	},
	eventTempAndHumidity: func(p []byte, body int) (reading.Reading, bool) {
		temp, ok := layout.Tenths(p, body, fieldTemperature)
		if !ok {
			return nil, false
		}
		hum, ok := layout.Tenths(p, body, fieldHumidity)
		return reading.TemperatureAndHumidity{Temperature: temp, Humidity: hum}, ok
	},
	eventTemperature: func(p []byte, body int) (reading.Reading, bool) {
		temp, ok := layout.Tenths(p, body, fieldTemperature)
		return reading.Temperature{Temperature: temp}, ok
	},
	eventHumidity: func(p []byte, body int) (reading.Reading, bool) {
		hum, ok := layout.Tenths(p, body, fieldHumidityOnly)
		return reading.Humidity{Humidity: hum}, ok
	},
	eventIlluminance: func(p []byte, body int) (reading.Reading, bool) {
		v, ok := layout.Read(p, body, fieldIlluminance)
		return reading.Illuminance{Illuminance: int32(v)}, ok
	},
	eventMoisture: func(p []byte, body int) (reading.Reading, bool) {
		v, ok := layout.Read(p, body, fieldMoisture)
		return reading.Moisture{Moisture: int8(v)}, ok
	},
	eventSoilConductivity: func(p []byte, body int) (reading.Reading, bool) {
		v, ok := layout.Read(p, body, fieldConductivity)
		return reading.SoilConductivity{Conductivity: int16(v)}, ok
	},
}
