package reading

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	require.True(t, IsEmpty(nil))
	require.True(t, IsEmpty(Empty{}))
	require.False(t, IsEmpty(Battery{Charge: 0}))
}

func TestFields(t *testing.T) {
	cases := []struct {
		name string
		in   Reading
		want map[string]any
	}{
		{"temperature_and_humidity", TemperatureAndHumidity{Temperature: 23.2, Humidity: 55.6}, map[string]any{"temperature": 23.2, "humidity": 55.6}},
		{"battery", Battery{Charge: 78}, map[string]any{"charge": uint8(78)}},
		{"pressure", Pressure{Pressure: 1013}, map[string]any{"pressure": uint16(1013)}},
		{"moisture", Moisture{Moisture: -3}, map[string]any{"moisture": int8(-3)}},
		{"empty", Empty{}, map[string]any{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Fields(tc.in))
		})
	}
}

func TestKind(t *testing.T) {
	require.Equal(t, KindIlluminance, Illuminance{}.Kind())
	require.Equal(t, KindEmpty, Empty{}.Kind())
}
