package airquality

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		station Station
		lat     float64
		lon     float64
		wantErr bool
	}{
		{
			name:    "valid coordinates",
			station: Station{ID: 1, Lat: "52.229700", Lon: "21.012200"},
			lat:     52.2297,
			lon:     21.0122,
		},
		{
			name:    "whitespace trimmed",
			station: Station{ID: 2, Lat: " 50.05 ", Lon: "19.94"},
			lat:     50.05,
			lon:     19.94,
		},
		{
			name:    "missing latitude",
			station: Station{ID: 3, Lat: "", Lon: "19.94"},
			wantErr: true,
		},
		{
			name:    "non-numeric longitude",
			station: Station{ID: 4, Lat: "50.05", Lon: "east"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, err := tt.station.Coordinates()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.lat, lat, 1e-9)
			assert.InDelta(t, tt.lon, lon, 1e-9)
		})
	}
}

func TestSampleTimeRoundTrip(t *testing.T) {
	in := []byte(`{"date":"2024-01-01 00:00:00","value":12.5}`)

	var s Sample
	require.NoError(t, json.Unmarshal(in, &s))
	assert.Equal(t, "2024-01-01 00:00:00", s.Date.Format(SampleTimeLayout))
	require.NotNil(t, s.Value)
	assert.Equal(t, 12.5, *s.Value)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, string(in), string(out))
}

func TestSampleNullValuePreserved(t *testing.T) {
	in := []byte(`{"date":"2024-01-01 00:00:00","value":null}`)

	var s Sample
	require.NoError(t, json.Unmarshal(in, &s))
	assert.Nil(t, s.Value, "null reading must stay nil, not become zero")

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"value":null`)
}

func TestSampleTimeRejectsBadFormat(t *testing.T) {
	var s Sample
	err := json.Unmarshal([]byte(`{"date":"01/01/2024","value":1}`), &s)
	assert.Error(t, err)
}

func TestFilterStationsByName(t *testing.T) {
	stations := []Station{
		{ID: 1, Name: "Warszawa-Targówek"},
		{ID: 2, Name: "Kraków, Aleja Krasińskiego"},
		{ID: 3, Name: "Warszawa-Ursynów"},
	}

	matched := FilterStationsByName(stations, "warszawa")
	require.Len(t, matched, 2)
	assert.Equal(t, 1, matched[0].ID)
	assert.Equal(t, 3, matched[1].ID)

	assert.Empty(t, FilterStationsByName(stations, "gdańsk"))
	assert.Len(t, FilterStationsByName(stations, ""), 3)
	assert.Len(t, FilterStationsByName(stations, "  KRAKÓW"), 1)
}

func TestSensorsForStation(t *testing.T) {
	sensors := []Sensor{
		{ID: 7, StationID: 42},
		{ID: 8, StationID: 42},
		{ID: 9, StationID: 99},
	}

	matched := SensorsForStation(sensors, 42)
	require.Len(t, matched, 2)
	assert.Equal(t, 7, matched[0].ID)

	assert.Empty(t, SensorsForStation(sensors, 1))
}
