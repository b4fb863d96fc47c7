package reading

// Kind names a reading shape. The reading's own encoding stays untagged; Kind
// only travels in envelopes and log fields.
type Kind string

const (
	KindTemperatureAndHumidity Kind = "temperature_and_humidity"
	KindTemperature            Kind = "temperature"
	KindHumidity               Kind = "humidity"
	KindBattery                Kind = "battery"
	KindPressure               Kind = "pressure"
	KindSoilConductivity       Kind = "soil_conductivity"
	KindMoisture               Kind = "moisture"
	KindIlluminance            Kind = "illuminance"
	KindEmpty                  Kind = "empty"
)

// Reading is one decoded sensor measurement. The set of implementations is
// closed; each shape serializes with its own field names only.
type Reading interface {
	Kind() Kind
	reading()
}

type TemperatureAndHumidity struct {
	Temperature float64 `json:"temperature" cbor:"temperature"`
	Humidity    float64 `json:"humidity" cbor:"humidity"`
}

type Temperature struct {
	Temperature float64 `json:"temperature" cbor:"temperature"`
}

type Humidity struct {
	Humidity float64 `json:"humidity" cbor:"humidity"`
}

type Battery struct {
	Charge uint8 `json:"charge" cbor:"charge"`
}

type Pressure struct {
	Pressure uint16 `json:"pressure" cbor:"pressure"`
}

type SoilConductivity struct {
	Conductivity int16 `json:"conductivity" cbor:"conductivity"`
}

type Moisture struct {
	Moisture int8 `json:"moisture" cbor:"moisture"`
}

type Illuminance struct {
	Illuminance int32 `json:"illuminance" cbor:"illuminance"`
}

// Empty is returned when a payload carries no decodable event. It is a
// valid outcome, not a failure, and serializes as an empty object.
type Empty struct{}

func (TemperatureAndHumidity) Kind() Kind { return KindTemperatureAndHumidity }
func (Temperature) Kind() Kind { return KindTemperature }
func (Humidity) Kind() Kind { return KindHumidity }
func (Battery) Kind() Kind { return KindBattery }
func (Pressure) Kind() Kind { return KindPressure }
func (SoilConductivity) Kind() Kind { return KindSoilConductivity }
func (Moisture) Kind() Kind { return KindMoisture }
func (Illuminance) Kind() Kind { return KindIlluminance }
func (Empty) Kind() Kind { return KindEmpty }

func (TemperatureAndHumidity) reading() {}
func (Temperature) reading() {}
func (Humidity) reading() {}
func (Battery) reading() {}
func (Pressure) reading() {}
func (SoilConductivity) reading() {}
func (Moisture) reading() {}
func (Illuminance) reading() {}
func (Empty) reading() {}

// IsEmpty reports whether r is nil or the Empty shape.
func IsEmpty(r Reading) bool {
	if r == nil {
		return true
	}
	_, ok := r.(Empty)
	return ok
}

// Fields flattens a reading into a field map keyed by the serialized field
// names. Empty yields an empty, non-nil map.
func Fields(r Reading) map[string]any {
	switch v := r.(type) {
	case TemperatureAndHumidity:
		return map[string]any{"temperature": v.Temperature, "humidity": v.Humidity}
	case Temperature:
		return map[string]any{"temperature": v.Temperature}
	case Humidity:
		return map[string]any{"humidity": v.Humidity}
	case Battery:
		return map[string]any{"charge": v.Charge}
	case Pressure:
		return map[string]any{"pressure": v.Pressure}
	case SoilConductivity:
		return map[string]any{"conductivity": v.Conductivity}
	case Moisture:
		return map[string]any{"moisture": v.Moisture}
	case Illuminance:
		return map[string]any{"illuminance": v.Illuminance}
	default:
		return map[string]any{}
	}
}
