// Package memory provides an in-memory implementation of storage.Store,
// used by coordinator tests and as a throwaway backend.
package memory

import (
	"context"
	"sync"
	"time"

	"aqmon/internal/airquality"
	"aqmon/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu           sync.Mutex
	stations     []airquality.Station
	sensors      []airquality.Sensor
	measurements []airquality.SeriesRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) LoadStations(ctx context.Context) ([]airquality.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]airquality.Station(nil), s.stations...), nil
}

func (s *Store) SaveStations(ctx context.Context, stations []airquality.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations = append([]airquality.Station(nil), stations...)
	return nil
}

func (s *Store) LoadSensors(ctx context.Context) ([]airquality.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]airquality.Sensor(nil), s.sensors...), nil
}

func (s *Store) SensorsForStation(ctx context.Context, stationID int) ([]airquality.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := airquality.SensorsForStation(s.sensors, stationID)
	if len(matched) == 0 {
		return nil, storage.ErrNotFound{Resource: "sensors", Key: stationID}
	}
	return matched, nil
}

func (s *Store) UpsertSensorsForStation(ctx context.Context, stationID int, sensors []airquality.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]airquality.Sensor, 0, len(s.sensors)+len(sensors))
	for _, existing := range s.sensors {
		if existing.StationID != stationID {
			merged = append(merged, existing)
		}
	}
	s.sensors = append(merged, sensors...)
	return nil
}

func (s *Store) LoadMeasurements(ctx context.Context) ([]airquality.SeriesRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]airquality.SeriesRecord(nil), s.measurements...), nil
}

func (s *Store) MeasurementsForSensor(ctx context.Context, sensorID int) (airquality.SeriesRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.measurements {
		if rec.SensorID == sensorID {
			return rec, nil
		}
	}
	return airquality.SeriesRecord{}, storage.ErrNotFound{Resource: "measurements", Key: sensorID}
}

func (s *Store) UpsertMeasurementsForSensor(ctx context.Context, sensorID int, values []airquality.Sample, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]airquality.SeriesRecord, 0, len(s.measurements)+1)
	for _, existing := range s.measurements {
		if existing.SensorID != sensorID {
			merged = append(merged, existing)
		}
	}
	s.measurements = append(merged, airquality.SeriesRecord{
		SensorID:    sensorID,
		Values:      values,
		LastUpdated: updatedAt,
	})
	return nil
}

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
