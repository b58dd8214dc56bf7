// Package jsonfile provides the JSON-file implementation of storage.Store.
// Each collection lives in its own file (stations.json, sensors.json,
// measurements.json) inside a data directory. Writes replace the file
// atomically via a temp file and keep a .bak copy of the previous contents.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aqmon/internal/airquality"
	"aqmon/internal/storage"
)

// Collection file names inside the data directory.
const (
	StationsFile     = "stations.json"
	SensorsFile      = "sensors.json"
	MeasurementsFile = "measurements.json"
)

// Store is a JSON-file implementation of storage.Store.
type Store struct {
	dir string

	// one writer at a time per collection
	stationsMu     sync.Mutex
	sensorsMu      sync.Mutex
	measurementsMu sync.Mutex
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &storage.StorageError{Op: "create data dir", Err: err}
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() error {
	return nil
}

// Stations

func (s *Store) LoadStations(ctx context.Context) ([]airquality.Station, error) {
	s.stationsMu.Lock()
	defer s.stationsMu.Unlock()

	var stations []airquality.Station
	if err := s.readCollection(StationsFile, &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

func (s *Store) SaveStations(ctx context.Context, stations []airquality.Station) error {
	s.stationsMu.Lock()
	defer s.stationsMu.Unlock()

	return s.writeCollection(StationsFile, stations)
}

// Sensors

func (s *Store) LoadSensors(ctx context.Context) ([]airquality.Sensor, error) {
	s.sensorsMu.Lock()
	defer s.sensorsMu.Unlock()

	return s.loadSensorsLocked()
}

func (s *Store) SensorsForStation(ctx context.Context, stationID int) ([]airquality.Sensor, error) {
	s.sensorsMu.Lock()
	defer s.sensorsMu.Unlock()

	all, err := s.loadSensorsLocked()
	if err != nil {
		return nil, err
	}
	matched := airquality.SensorsForStation(all, stationID)
	if len(matched) == 0 {
		return nil, storage.ErrNotFound{Resource: "sensors", Key: stationID}
	}
	return matched, nil
}

func (s *Store) UpsertSensorsForStation(ctx context.Context, stationID int, sensors []airquality.Sensor) error {
	s.sensorsMu.Lock()
	defer s.sensorsMu.Unlock()

	all, err := s.loadSensorsLocked()
	if err != nil {
		return err
	}

	merged := make([]airquality.Sensor, 0, len(all)+len(sensors))
	for _, existing := range all {
		if existing.StationID != stationID {
			merged = append(merged, existing)
		}
	}
	merged = append(merged, sensors...)

	return s.writeCollection(SensorsFile, merged)
}

func (s *Store) loadSensorsLocked() ([]airquality.Sensor, error) {
	var sensors []airquality.Sensor
	if err := s.readCollection(SensorsFile, &sensors); err != nil {
		return nil, err
	}
	return sensors, nil
}

// Measurements

func (s *Store) LoadMeasurements(ctx context.Context) ([]airquality.SeriesRecord, error) {
	s.measurementsMu.Lock()
	defer s.measurementsMu.Unlock()

	return s.loadMeasurementsLocked()
}

func (s *Store) MeasurementsForSensor(ctx context.Context, sensorID int) (airquality.SeriesRecord, error) {
	s.measurementsMu.Lock()
	defer s.measurementsMu.Unlock()

	all, err := s.loadMeasurementsLocked()
	if err != nil {
		return airquality.SeriesRecord{}, err
	}
	for _, rec := range all {
		if rec.SensorID == sensorID {
			return rec, nil
		}
	}
	return airquality.SeriesRecord{}, storage.ErrNotFound{Resource: "measurements", Key: sensorID}
}

func (s *Store) UpsertMeasurementsForSensor(ctx context.Context, sensorID int, values []airquality.Sample, updatedAt time.Time) error {
	s.measurementsMu.Lock()
	defer s.measurementsMu.Unlock()

	all, err := s.loadMeasurementsLocked()
	if err != nil {
		return err
	}

	merged := make([]airquality.SeriesRecord, 0, len(all)+1)
	for _, existing := range all {
		if existing.SensorID != sensorID {
			merged = append(merged, existing)
		}
	}
	merged = append(merged, airquality.SeriesRecord{
		SensorID:    sensorID,
		Values:      values,
		LastUpdated: updatedAt,
	})

	return s.writeCollection(MeasurementsFile, merged)
}

func (s *Store) loadMeasurementsLocked() ([]airquality.SeriesRecord, error) {
	var records []airquality.SeriesRecord
	if err := s.readCollection(MeasurementsFile, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// readCollection reads a collection file into out. A missing file reads as
// an empty collection. A corrupt or truncated file (e.g. a crash mid-write)
// also reads as empty rather than failing the caller.
func (s *Store) readCollection(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &storage.StorageError{Op: "read " + name, Err: err}
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		// Treat unparseable contents as no data.
		return nil
	}
	return nil
}

// writeCollection replaces a collection file. The new contents are written
// to a temp file and synced before being renamed into place, so a reader
// never observes a half-written file. The previous contents are kept in
// name.bak on a best-effort basis.
func (s *Store) writeCollection(name string, collection any) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return &storage.StorageError{Op: "encode " + name, Err: err}
	}

	path := filepath.Join(s.dir, name)
	s.backup(path)

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return &storage.StorageError{Op: "write " + name, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &storage.StorageError{Op: "write " + name, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &storage.StorageError{Op: "sync " + name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &storage.StorageError{Op: "close " + name, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &storage.StorageError{Op: "replace " + name, Err: err}
	}
	return nil
}

// backup copies the current file contents to path.bak. A failed backup never
// blocks the write it precedes.
func (s *Store) backup(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = os.WriteFile(fmt.Sprintf("%s.bak", path), data, 0o644)
}

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
