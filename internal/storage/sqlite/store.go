// Package sqlite provides a SQLite implementation of the storage.Store
// interface, as an alternative to the JSON-file backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"aqmon/internal/airquality"
	"aqmon/internal/storage"

	_ "modernc.org/sqlite"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

// NewMemoryStore creates an in-memory SQLite store.
func NewMemoryStore() (*Store, error) {
	return newStore(":memory:")
}

// NewFileStore creates a file-based SQLite store.
func NewFileStore(path string) (*Store, error) {
	return newStore(path)
}

func newStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &storage.StorageError{Op: "open database", Err: err}
	}
	// The driver is not safe for concurrent writes over multiple connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, &storage.StorageError{Op: "migrate", Err: err}
	}
	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stations

func (s *Store) LoadStations(ctx context.Context) ([]airquality.Station, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, station_name, gegr_lat, gegr_lon FROM stations ORDER BY id
	`)
	if err != nil {
		return nil, &storage.StorageError{Op: "load stations", Err: err}
	}
	defer rows.Close()

	var stations []airquality.Station
	for rows.Next() {
		var st airquality.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon); err != nil {
			return nil, &storage.StorageError{Op: "scan station", Err: err}
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.StorageError{Op: "load stations", Err: err}
	}
	return stations, nil
}

func (s *Store) SaveStations(ctx context.Context, stations []airquality.Station) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &storage.StorageError{Op: "save stations", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stations"); err != nil {
		return &storage.StorageError{Op: "save stations", Err: err}
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (id, station_name, gegr_lat, gegr_lon)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return &storage.StorageError{Op: "save stations", Err: err}
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.ExecContext(ctx, st.ID, st.Name, st.Lat, st.Lon); err != nil {
			return &storage.StorageError{Op: "save stations", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &storage.StorageError{Op: "save stations", Err: err}
	}
	return nil
}

// Sensors

func (s *Store) LoadSensors(ctx context.Context) ([]airquality.Sensor, error) {
	return s.querySensors(ctx, `
		SELECT id, station_id, param_name, param_formula, param_code, param_id
		FROM sensors ORDER BY id
	`)
}

func (s *Store) SensorsForStation(ctx context.Context, stationID int) ([]airquality.Sensor, error) {
	sensors, err := s.querySensors(ctx, `
		SELECT id, station_id, param_name, param_formula, param_code, param_id
		FROM sensors WHERE station_id = ? ORDER BY id
	`, stationID)
	if err != nil {
		return nil, err
	}
	if len(sensors) == 0 {
		return nil, storage.ErrNotFound{Resource: "sensors", Key: stationID}
	}
	return sensors, nil
}

func (s *Store) querySensors(ctx context.Context, query string, args ...any) ([]airquality.Sensor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.StorageError{Op: "load sensors", Err: err}
	}
	defer rows.Close()

	var sensors []airquality.Sensor
	for rows.Next() {
		var sn airquality.Sensor
		if err := rows.Scan(&sn.ID, &sn.StationID, &sn.Param.Name, &sn.Param.Formula, &sn.Param.Code, &sn.Param.ID); err != nil {
			return nil, &storage.StorageError{Op: "scan sensor", Err: err}
		}
		sensors = append(sensors, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.StorageError{Op: "load sensors", Err: err}
	}
	return sensors, nil
}

func (s *Store) UpsertSensorsForStation(ctx context.Context, stationID int, sensors []airquality.Sensor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &storage.StorageError{Op: "upsert sensors", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sensors WHERE station_id = ?", stationID); err != nil {
		return &storage.StorageError{Op: "upsert sensors", Err: err}
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO sensors (id, station_id, param_name, param_formula, param_code, param_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return &storage.StorageError{Op: "upsert sensors", Err: err}
	}
	defer stmt.Close()

	for _, sn := range sensors {
		if _, err := stmt.ExecContext(ctx, sn.ID, sn.StationID, sn.Param.Name, sn.Param.Formula, sn.Param.Code, sn.Param.ID); err != nil {
			return &storage.StorageError{Op: "upsert sensors", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &storage.StorageError{Op: "upsert sensors", Err: err}
	}
	return nil
}

// Measurements. The sample list is stored as a JSON blob per sensor; samples
// are only ever read and replaced as a whole series.

func (s *Store) LoadMeasurements(ctx context.Context) ([]airquality.SeriesRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sensor_id, values_json, last_updated FROM measurements ORDER BY sensor_id
	`)
	if err != nil {
		return nil, &storage.StorageError{Op: "load measurements", Err: err}
	}
	defer rows.Close()

	var records []airquality.SeriesRecord
	for rows.Next() {
		rec, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.StorageError{Op: "load measurements", Err: err}
	}
	return records, nil
}

func (s *Store) MeasurementsForSensor(ctx context.Context, sensorID int) (airquality.SeriesRecord, error) {
	var rec airquality.SeriesRecord
	var valuesJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT sensor_id, values_json, last_updated FROM measurements WHERE sensor_id = ?
	`, sensorID).Scan(&rec.SensorID, &valuesJSON, &rec.LastUpdated)
	if err == sql.ErrNoRows {
		return airquality.SeriesRecord{}, storage.ErrNotFound{Resource: "measurements", Key: sensorID}
	}
	if err != nil {
		return airquality.SeriesRecord{}, &storage.StorageError{Op: "load measurements", Err: err}
	}
	if err := json.Unmarshal([]byte(valuesJSON), &rec.Values); err != nil {
		return airquality.SeriesRecord{}, &storage.StorageError{Op: "decode measurements", Err: err}
	}
	return rec, nil
}

func (s *Store) UpsertMeasurementsForSensor(ctx context.Context, sensorID int, values []airquality.Sample, updatedAt time.Time) error {
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return &storage.StorageError{Op: "encode measurements", Err: fmt.Errorf("sensor %d: %w", sensorID, err)}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO measurements (sensor_id, values_json, last_updated)
		VALUES (?, ?, ?)
	`, sensorID, string(valuesJSON), updatedAt)
	if err != nil {
		return &storage.StorageError{Op: "upsert measurements", Err: err}
	}
	return nil
}

func scanSeries(rows *sql.Rows) (airquality.SeriesRecord, error) {
	var rec airquality.SeriesRecord
	var valuesJSON string
	if err := rows.Scan(&rec.SensorID, &valuesJSON, &rec.LastUpdated); err != nil {
		return rec, &storage.StorageError{Op: "scan measurements", Err: err}
	}
	if err := json.Unmarshal([]byte(valuesJSON), &rec.Values); err != nil {
		return rec, &storage.StorageError{Op: "decode measurements", Err: err}
	}
	return rec, nil
}

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
