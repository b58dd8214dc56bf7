// Package storage provides the persistence abstraction for the three local
// collections: stations, sensors and measurement series.
package storage

import (
	"context"
	"errors"
	"time"

	"aqmon/internal/airquality"
)

// Store is the interface for durable key-addressable persistence. The
// stations collection is replaced wholesale; sensors and measurement series
// are upserted by station id and sensor id respectively. An upsert never
// touches entries stored under other keys.
type Store interface {
	// Stations
	LoadStations(ctx context.Context) ([]airquality.Station, error)
	SaveStations(ctx context.Context, stations []airquality.Station) error

	// Sensors
	LoadSensors(ctx context.Context) ([]airquality.Sensor, error)
	SensorsForStation(ctx context.Context, stationID int) ([]airquality.Sensor, error)
	UpsertSensorsForStation(ctx context.Context, stationID int, sensors []airquality.Sensor) error

	// Measurement series
	LoadMeasurements(ctx context.Context) ([]airquality.SeriesRecord, error)
	MeasurementsForSensor(ctx context.Context, sensorID int) (airquality.SeriesRecord, error)
	UpsertMeasurementsForSensor(ctx context.Context, sensorID int, values []airquality.Sample, updatedAt time.Time) error

	// Lifecycle
	Close() error
}

// ErrNotFound is returned when no entry is stored under the requested key.
// An empty collection is not an I/O failure; see StorageError for those.
type ErrNotFound struct {
	Resource string
	Key      int
}

func (e ErrNotFound) Error() string {
	return e.Resource + " not found"
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// StorageError wraps an underlying I/O failure (unreadable file, failed
// write, bad permissions). It is distinct from ErrNotFound so callers can
// tell an empty cache from a broken one.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError checks if an error is an I/O-level storage failure.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
