package driver

import (
	"strings"
	"sync"

	"github.com/bitkill/hello-blea/internal/reading"
)

// Driver decodes the service-data payloads of one vendor.
type Driver interface {
	Name() string
	// Claims reports whether the driver understands payloads keyed by the
	// given service identifier.
	Claims(service string) bool
	// Decode never fails: undecodable payloads yield reading.Empty.
	Decode(payload []byte) reading.Reading
}

// Inspector can describe a payload (MAC address, model, flags) for
// diagnostics. Inspection never influences decoding.
type Inspector interface {
	Inspect(payload []byte) map[string]any
}

// Decoded pairs a reading with the driver that produced it. Details is only
// filled by RouteWithDetails.
type Decoded struct {
	Driver  string
	Reading reading.Reading
	Details map[string]any
}

var (
	regMu    sync.RWMutex
	registry []Driver
)

// Register appends a driver to the routing order. Drivers register from
// their package init, before any payload is routed.
func Register(drv Driver) {
	regMu.Lock()
	defer regMu.Unlock()
	registry = append(registry, drv)
}

// Drivers returns the registered drivers in routing order.
func Drivers() []Driver {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]Driver, len(registry))
	copy(out, registry)
	return out
}

// Route hands the payload to every driver claiming service. No claiming
// driver means no results, which is not an error.
func Route(service string, payload []byte) []Decoded {
	return route(service, payload, false)
}

// RouteWithDetails is Route plus the diagnostics of drivers that implement
// Inspector.
func RouteWithDetails(service string, payload []byte) []Decoded {
	return route(service, payload, true)
}

func route(service string, payload []byte, inspect bool) []Decoded {
	regMu.RLock()
	defer regMu.RUnlock()
	var out []Decoded
	for _, drv := range registry {
		if !drv.Claims(service) {
			continue
		}
		d := Decoded{Driver: drv.Name(), Reading: drv.Decode(payload)}
		if inspector, ok := drv.(Inspector); ok && inspect {
			d.Details = inspector.Inspect(payload)
		}
		out = append(out, d)
	}
	return out
}

// MatchService is the shared claims policy: a short service code matches
// when it appears anywhere in the identifier followed by '-', which is how
// 16-bit codes show up inside 128-bit Bluetooth UUID strings. It is a
// containment test on purpose, not a structural UUID parse.
func MatchService(service string, codes []string) bool {
	id := strings.ToLower(service)
	for _, code := range codes {
		if strings.Contains(id, strings.ToLower(code)+"-") {
			return true
		}
	}
	return false
}
