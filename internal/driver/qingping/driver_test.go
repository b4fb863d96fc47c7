package qingping

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitkill/hello-blea/internal/reading"
)

func TestClaims(t *testing.T) {
	d := Driver{}
	require.True(t, d.Claims("0000fdcd-0000-1000-8000-00805f9b34fb"))
	require.True(t, d.Claims("0000fff9-0000-1000-8000-00805f9b34fb"))
	require.False(t, d.Claims("0000fe95-0000-1000-8000-00805f9b34fb"))
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    reading.Reading
	}{
		{"temperature_and_humidity", "08010000001112130114e8002c02", reading.TemperatureAndHumidity{Temperature: 23.2, Humidity: 55.6}},
		{"negative_temperature", "0801000000111213011418ff2c02", reading.TemperatureAndHumidity{Temperature: -23.2, Humidity: 55.6}},
		{"battery", "08010000001112130214" + "4e", reading.Battery{Charge: 78}},
		{"pressure", "08010000001112130714" + "f503", reading.Pressure{Pressure: 1013}},
		{"unknown_event", "08010000001112130914" + "0000", reading.Empty{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Driver{}.Decode(mustHex(t, tc.payload))
			if want, ok := tc.want.(reading.TemperatureAndHumidity); ok {
				th, ok := got.(reading.TemperatureAndHumidity)
				require.True(t, ok, "got %T", got)
				require.InDelta(t, want.Temperature, th.Temperature, 1e-9)
				require.InDelta(t, want.Humidity, th.Humidity, 1e-9)
				return
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestTruncatedPayloadsAreEmpty(t *testing.T) {
	full := mustHex(t, "0801000000111213011418ff2c02")
	for n := 0; n < len(full); n++ {
		require.NotPanics(t, func() {
			require.Equal(t, reading.Empty{}, Driver{}.Decode(full[:n]), "prefix %d", n)
		})
	}
}

func TestInspect(t *testing.T) {
	fields := Driver{}.Inspect(mustHex(t, "0807000000a8654c38c1a4ff4e"))
	require.Equal(t, "CGG1", fields["model"])
	require.Equal(t, "a4c1384c65a8", fields["mac"])
	require.Equal(t, "0x38", fields["event_code"])

	short := Driver{}.Inspect([]byte{0x08})
	require.NotContains(t, short, "mac")
	require.NotContains(t, short, "device")
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}
