package driver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitkill/hello-blea/internal/reading"
)

type stubDriver struct {
	name  string
	codes []string
	out   reading.Reading
}

func (s stubDriver) Name() string { return s.name }

func (s stubDriver) Claims(service string) bool {
	return MatchService(service, s.codes)
}

func (s stubDriver) Decode(_ []byte) reading.Reading { return s.out }

func withRegistry(t *testing.T, drivers ...Driver) {
	t.Helper()
	regMu.Lock()
	saved := registry
	registry = drivers
	regMu.Unlock()
	t.Cleanup(func() {
		regMu.Lock()
		registry = saved
		regMu.Unlock()
	})
}

func TestMatchService(t *testing.T) {
	codes := []string{"fff9", "fdcd"}
	require.True(t, MatchService("0000fdcd-0000-1000-8000-00805f9b34fb", codes))
	require.True(t, MatchService("0000FFF9-0000-1000-8000-00805F9B34FB", codes))
	require.True(t, MatchService("prefix-fff9-suffix", codes))
	require.False(t, MatchService("0000fe95-0000-1000-8000-00805f9b34fb", codes))
	require.False(t, MatchService("fff9", codes))
	require.False(t, MatchService("", codes))
	require.False(t, MatchService("not a uuid at all", codes))
}

func TestRoute(t *testing.T) {
	withRegistry(t,
		stubDriver{name: "a", codes: []string{"fe95"}, out: reading.Battery{Charge: 1}},
		stubDriver{name: "b", codes: []string{"fff9"}, out: reading.Battery{Charge: 2}},
	)

	got := Route("0000fff9-0000-1000-8000-00805f9b34fb", []byte{0x00})
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0].Driver)
	require.Equal(t, reading.Battery{Charge: 2}, got[0].Reading)

	require.Empty(t, Route("0000180f-0000-1000-8000-00805f9b34fb", []byte{0x00}))
}

func TestRouteEveryClaimingDriver(t *testing.T) {
	withRegistry(t,
		stubDriver{name: "a", codes: []string{"fe95"}, out: reading.Empty{}},
		stubDriver{name: "b", codes: []string{"fe95"}, out: reading.Pressure{Pressure: 7}},
	)
	got := Route("0000fe95-0000-1000-8000-00805f9b34fb", nil)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Driver)
	require.Equal(t, "b", got[1].Driver)
}

type inspectingDriver struct {
	stubDriver
	calls *int
}

func (d inspectingDriver) Inspect(_ []byte) map[string]any {
	*d.calls++
	return map[string]any{"model": d.name}
}

func TestRouteWithDetails(t *testing.T) {
	calls := 0
	withRegistry(t,
		inspectingDriver{stubDriver: stubDriver{name: "a", codes: []string{"fe95"}, out: reading.Empty{}}, calls: &calls},
		stubDriver{name: "b", codes: []string{"fe95"}, out: reading.Empty{}},
	)
	service := "0000fe95-0000-1000-8000-00805f9b34fb"

	plain := Route(service, nil)
	require.Len(t, plain, 2)
	require.Nil(t, plain[0].Details)
	require.Zero(t, calls, "Route must not inspect")

	detailed := RouteWithDetails(service, nil)
	require.Len(t, detailed, 2)
	require.Equal(t, map[string]any{"model": "a"}, detailed[0].Details)
	require.Nil(t, detailed[1].Details)
	require.Equal(t, 1, calls)
}

func TestDrivers(t *testing.T) {
	withRegistry(t, stubDriver{name: "a"}, stubDriver{name: "b"})
	drivers := Drivers()
	require.Len(t, drivers, 2)
	require.Equal(t, "a", drivers[0].Name())
}
