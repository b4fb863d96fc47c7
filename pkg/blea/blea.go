package blea

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitkill/hello-blea/internal/driver"
	_ "github.com/bitkill/hello-blea/internal/driver/qingping" // register driver
	_ "github.com/bitkill/hello-blea/internal/driver/xiaomi"   // register driver
	"github.com/bitkill/hello-blea/internal/frame"
	"github.com/bitkill/hello-blea/internal/options"
	"github.com/bitkill/hello-blea/internal/reading"
)

// Reading shapes, re-exported for callers outside this module.
type (
	Reading                = reading.Reading
	TemperatureAndHumidity = reading.TemperatureAndHumidity
	Temperature            = reading.Temperature
	Humidity               = reading.Humidity
	Battery                = reading.Battery
	Pressure               = reading.Pressure
	SoilConductivity       = reading.SoilConductivity
	Moisture               = reading.Moisture
	Illuminance            = reading.Illuminance
	Empty                  = reading.Empty
)

// Decoded is one driver's view of a payload.
type Decoded struct {
	Driver  string         `json:"driver"`
	Kind    reading.Kind   `json:"kind"`
	Reading Reading        `json:"reading"`
	Details map[string]any `json:"details,omitempty"`
}

// FieldSet returns typed accessors over the reading's fields.
func (d Decoded) FieldSet() FieldSet {
	return FieldSet{data: reading.Fields(d.Reading)}
}

// Decode routes payload to every driver claiming service. No claiming driver
// yields nil.
func Decode(service string, payload []byte) []Decoded {
	return wrap(driver.Route(service, payload))
}

// DecodeWithDetails is Decode plus driver diagnostics (MAC, model, flags)
// in Details.
func DecodeWithDetails(service string, payload []byte) []Decoded {
	return wrap(driver.RouteWithDetails(service, payload))
}

func wrap(routed []driver.Decoded) []Decoded {
	if len(routed) == 0 {
		return nil
	}
	out := make([]Decoded, 0, len(routed))
	for _, r := range routed {
		out = append(out, Decoded{
			Driver:  r.Driver,
			Kind:    r.Reading.Kind(),
			Reading: r.Reading,
			Details: r.Details,
		})
	}
	return out
}

// Drivers lists the registered driver names in routing order.
func Drivers() []string {
	drivers := driver.Drivers()
	names := make([]string, 0, len(drivers))
	for _, d := range drivers {
		names = append(names, d.Name())
	}
	return names
}

// Result captures the outcome of Analyze.
type Result struct {
	Service   string
	RawHex    string
	ByteCount int
	Decoded   []Decoded
}

// String renders a human-readable representation of the result.
func (r Result) String() string {
	summary := map[string]any{
		"service":    r.Service,
		"byte_count": r.ByteCount,
		"raw_hex":    r.RawHex,
		"driver":     "unknown",
	}
	if code, ok := options.ShortCode(r.Service); ok {
		summary["short_code"] = fmt.Sprintf("0x%04x", code)
	}
	if len(r.Decoded) > 0 {
		summary["decoded"] = r.Decoded
		names := make([]string, 0, len(r.Decoded))
		for _, d := range r.Decoded {
			names = append(names, d.Driver)
		}
		summary["driver"] = strings.Join(names, ",")
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Sprintf("service: %s bytes:%d raw:%s (marshal error: %v)", r.Service, r.ByteCount, r.RawHex, err)
	}
	return string(data)
}

// Analyze decodes a hex payload advertised under service.
func Analyze(ctx context.Context, service, payloadHex string) (Result, error) {
	return AnalyzeWithOptions(ctx, service, payloadHex, AnalyzeOptions{})
}

// AnalyzeWithOptions decodes a hex payload with custom options.
func AnalyzeWithOptions(ctx context.Context, service, payloadHex string, opts AnalyzeOptions) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	id, err := options.ParseService(service)
	if err != nil {
		return Result{}, err
	}
	data, err := frame.DecodeHex(payloadHex)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		Service:   id,
		RawHex:    hex.EncodeToString(data),
		ByteCount: len(data),
	}
	if opts.Inspect {
		result.Decoded = DecodeWithDetails(id, data)
	} else {
		result.Decoded = Decode(id, data)
	}
	return result, nil
}
