// Package airquality defines the domain types shared by the remote client,
// the local store and the coordinator: stations, sensors and measurement
// series as exposed by the GIOŚ REST API.
package airquality

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Station is a physical monitoring location. The API reports coordinates as
// strings; use Coordinates to get parsed values.
type Station struct {
	ID   int    `json:"id"`
	Name string `json:"stationName"`
	Lat  string `json:"gegrLat"`
	Lon  string `json:"gegrLon"`
}

// Coordinates parses the station's latitude and longitude into decimal
// degrees. Returns an error when either field is missing or not numeric.
func (s Station) Coordinates() (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(strings.TrimSpace(s.Lat), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("station %d: invalid latitude %q", s.ID, s.Lat)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(s.Lon), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("station %d: invalid longitude %q", s.ID, s.Lon)
	}
	return lat, lon, nil
}

// Param describes the measured parameter of a sensor (e.g. PM10).
type Param struct {
	Name    string `json:"paramName"`
	Formula string `json:"paramFormula,omitempty"`
	Code    string `json:"paramCode"`
	ID      int    `json:"idParam,omitempty"`
}

// Sensor is a single measured parameter at a station. StationID is stamped
// onto fetched sensors before they are stored; it is the upsert key.
type Sensor struct {
	ID        int   `json:"id"`
	StationID int   `json:"stationId"`
	Param     Param `json:"param"`
}

// SampleTimeLayout is the timestamp format used by the measurement endpoint.
const SampleTimeLayout = "2006-01-02 15:04:05"

// SampleTime is a timestamp in the API's "yyyy-MM-dd HH:mm:ss" format.
type SampleTime struct {
	time.Time
}

func (t SampleTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.Format(SampleTimeLayout))), nil
}

func (t *SampleTime) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("sample time: %w", err)
	}
	parsed, err := time.Parse(SampleTimeLayout, s)
	if err != nil {
		return fmt.Errorf("sample time: %w", err)
	}
	t.Time = parsed
	return nil
}

// Sample is a single (timestamp, value) reading. A nil Value means the sensor
// reported no reading for that timestamp; it is meaningful and must never be
// coerced to zero or dropped.
type Sample struct {
	Date  SampleTime `json:"date"`
	Value *float64   `json:"value"`
}

// SeriesRecord is the stored measurement series for one sensor.
type SeriesRecord struct {
	SensorID    int       `json:"id"`
	Values      []Sample  `json:"values"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// FilterStationsByName returns the stations whose display name contains the
// query, case-insensitively. An empty query matches everything.
func FilterStationsByName(stations []Station, query string) []Station {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return stations
	}
	var out []Station
	for _, s := range stations {
		if strings.Contains(strings.ToLower(s.Name), query) {
			out = append(out, s)
		}
	}
	return out
}

// SensorsForStation returns the subset of sensors owned by the given station.
func SensorsForStation(sensors []Sensor, stationID int) []Sensor {
	var out []Sensor
	for _, s := range sensors {
		if s.StationID == stationID {
			out = append(out, s)
		}
	}
	return out
}
