// Package coordinator decides, per entity kind, whether to serve data from
// the local store or fetch it from the network, merges fetched results into
// the store, and degrades to an explicit unavailable error when neither
// source can satisfy a request.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"aqmon/internal/airquality"
	"aqmon/internal/geo"
	"aqmon/internal/geocode"
	"aqmon/internal/storage"
)

// ErrUnavailable is the terminal failure: neither the local store nor the
// network could satisfy the request. It is always distinguishable from a
// successful empty result.
var ErrUnavailable = errors.New("no data source available")

// DefaultFetchTimeout bounds a single network fetch.
const DefaultFetchTimeout = 10 * time.Second

// RemoteClient is the network side of the coordinator. Implemented by
// gios.Client; tests substitute counting fakes.
type RemoteClient interface {
	FetchStations(ctx context.Context) ([]airquality.Station, error)
	FetchSensors(ctx context.Context, stationID int) ([]airquality.Sensor, error)
	FetchMeasurements(ctx context.Context, sensorID int) ([]airquality.Sample, error)
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geocode.Point, error)
}

// Coordinator serves station, sensor and measurement data cache-first with
// network fallback. Concurrent requests for the same entity key share a
// single in-flight fetch, so replace-by-key upserts never race each other.
type Coordinator struct {
	store    storage.Store
	client   RemoteClient
	geocoder Geocoder
	log      *slog.Logger

	// FetchTimeout bounds any single network fetch. A fetch that exceeds it
	// counts as failed and never writes to the store.
	FetchTimeout time.Duration

	// Now returns the current time, overridable in tests.
	Now func() time.Time

	group singleflight.Group
}

// New creates a Coordinator over the given store and remote client.
func New(store storage.Store, client RemoteClient, geocoder Geocoder, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		store:        store,
		client:       client,
		geocoder:     geocoder,
		log:          log,
		FetchTimeout: DefaultFetchTimeout,
		Now:          time.Now,
	}
}

// Stations returns the station collection, from the store when it holds any
// stations, otherwise from the network (persisting the result first).
func (c *Coordinator) Stations(ctx context.Context) ([]airquality.Station, error) {
	stations, err := c.store.LoadStations(ctx)
	if err != nil {
		c.log.Warn("station cache read failed, trying network", "error", err)
	}
	if len(stations) > 0 {
		return stations, nil
	}
	return c.fetchStations(ctx)
}

// RefreshStations always fetches the station list, replacing the cached
// collection wholesale. On fetch failure it falls back to the cache.
func (c *Coordinator) RefreshStations(ctx context.Context) ([]airquality.Station, error) {
	stations, err := c.fetchStations(ctx)
	if !errors.Is(err, ErrUnavailable) {
		return stations, err
	}

	cached, cacheErr := c.store.LoadStations(ctx)
	if cacheErr == nil && len(cached) > 0 {
		c.log.Warn("station refresh failed, serving cached data", "error", err)
		return cached, nil
	}
	return nil, err
}

// GetSensors returns the sensors for a station. Any cached sensor for the
// station counts as a hit and suppresses the network call; staleness is
// accepted in exchange for offline support. RefreshSensors bypasses the hit.
func (c *Coordinator) GetSensors(ctx context.Context, stationID int) ([]airquality.Sensor, error) {
	cached, err := c.store.SensorsForStation(ctx, stationID)
	if err == nil {
		return cached, nil
	}
	if !storage.IsNotFound(err) {
		c.log.Warn("sensor cache read failed, trying network", "stationId", stationID, "error", err)
	}
	return c.fetchSensors(ctx, stationID)
}

// RefreshSensors always fetches the station's sensors, replacing the cached
// set for that station. On fetch failure it falls back to whatever the store
// holds for the station.
func (c *Coordinator) RefreshSensors(ctx context.Context, stationID int) ([]airquality.Sensor, error) {
	sensors, err := c.fetchSensors(ctx, stationID)
	if !errors.Is(err, ErrUnavailable) {
		return sensors, err
	}

	cached, cacheErr := c.store.SensorsForStation(ctx, stationID)
	if cacheErr == nil {
		c.log.Warn("sensor refresh failed, serving cached data", "stationId", stationID, "error", err)
		return cached, nil
	}
	return nil, err
}

// GetMeasurements returns the measurement series for a sensor, cache-first.
func (c *Coordinator) GetMeasurements(ctx context.Context, sensorID int) (airquality.SeriesRecord, error) {
	rec, err := c.store.MeasurementsForSensor(ctx, sensorID)
	if err == nil {
		return rec, nil
	}
	if !storage.IsNotFound(err) {
		c.log.Warn("measurement cache read failed, trying network", "sensorId", sensorID, "error", err)
	}
	return c.fetchMeasurements(ctx, sensorID)
}

// RefreshMeasurements always fetches the sensor's series, replacing the
// cached entry. On fetch failure it falls back to the cached series.
func (c *Coordinator) RefreshMeasurements(ctx context.Context, sensorID int) (airquality.SeriesRecord, error) {
	rec, err := c.fetchMeasurements(ctx, sensorID)
	if !errors.Is(err, ErrUnavailable) {
		return rec, err
	}

	cached, cacheErr := c.store.MeasurementsForSensor(ctx, sensorID)
	if cacheErr == nil {
		c.log.Warn("measurement refresh failed, serving cached data", "sensorId", sensorID, "error", err)
		return cached, nil
	}
	return airquality.SeriesRecord{}, err
}

// StationsNearAddress geocodes an address and returns the stations within
// radiusKm of it. Stations with unparseable coordinates are excluded.
func (c *Coordinator) StationsNearAddress(ctx context.Context, address string, radiusKm float64) ([]airquality.Station, error) {
	if c.geocoder == nil {
		return nil, errors.New("no geocoder configured")
	}

	gctx, cancel := context.WithTimeout(ctx, c.FetchTimeout)
	defer cancel()
	point, err := c.geocoder.Geocode(gctx, address)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w: %v", address, ErrUnavailable, err)
	}

	stations, err := c.Stations(ctx)
	if err != nil {
		return nil, err
	}
	return geo.StationsWithinRadius(stations, point.Lat, point.Lon, radiusKm), nil
}

// fetch helpers. Each runs under a singleflight key so that a second request
// for the same entity awaits the first instead of racing it, and each bounds
// the network call with FetchTimeout. A persist failure after a successful
// fetch returns the fetched data together with the storage error: the caller
// gets usable data and a distinguishable signal that it did not stick.

type stationsResult struct {
	stations   []airquality.Station
	persistErr error
}

func (c *Coordinator) fetchStations(ctx context.Context) ([]airquality.Station, error) {
	v, err, _ := c.group.Do("stations", func() (any, error) {
		fctx, cancel := context.WithTimeout(ctx, c.FetchTimeout)
		defer cancel()

		stations, err := c.client.FetchStations(fctx)
		if err != nil {
			return nil, err
		}
		res := stationsResult{stations: stations}
		if err := c.store.SaveStations(ctx, stations); err != nil {
			res.persistErr = err
		}
		return res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("stations: %w: %v", ErrUnavailable, err)
	}
	res := v.(stationsResult)
	if res.persistErr != nil {
		c.log.Warn("station cache write failed", "error", res.persistErr)
		return res.stations, res.persistErr
	}
	return res.stations, nil
}

type sensorsResult struct {
	sensors    []airquality.Sensor
	persistErr error
}

func (c *Coordinator) fetchSensors(ctx context.Context, stationID int) ([]airquality.Sensor, error) {
	key := fmt.Sprintf("sensors:%d", stationID)
	v, err, _ := c.group.Do(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(ctx, c.FetchTimeout)
		defer cancel()

		sensors, err := c.client.FetchSensors(fctx, stationID)
		if err != nil {
			return nil, err
		}
		res := sensorsResult{sensors: sensors}
		if err := c.store.UpsertSensorsForStation(ctx, stationID, sensors); err != nil {
			res.persistErr = err
		}
		return res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("sensors for station %d: %w: %v", stationID, ErrUnavailable, err)
	}
	res := v.(sensorsResult)
	if res.persistErr != nil {
		c.log.Warn("sensor cache write failed", "stationId", stationID, "error", res.persistErr)
		return res.sensors, res.persistErr
	}
	return res.sensors, nil
}

type measurementsResult struct {
	record     airquality.SeriesRecord
	persistErr error
}

func (c *Coordinator) fetchMeasurements(ctx context.Context, sensorID int) (airquality.SeriesRecord, error) {
	key := fmt.Sprintf("measurements:%d", sensorID)
	v, err, _ := c.group.Do(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(ctx, c.FetchTimeout)
		defer cancel()

		values, err := c.client.FetchMeasurements(fctx, sensorID)
		if err != nil {
			return nil, err
		}
		now := c.Now()
		res := measurementsResult{record: airquality.SeriesRecord{
			SensorID:    sensorID,
			Values:      values,
			LastUpdated: now,
		}}
		if err := c.store.UpsertMeasurementsForSensor(ctx, sensorID, values, now); err != nil {
			res.persistErr = err
		}
		return res, nil
	})
	if err != nil {
		return airquality.SeriesRecord{}, fmt.Errorf("measurements for sensor %d: %w: %v", sensorID, ErrUnavailable, err)
	}
	res := v.(measurementsResult)
	if res.persistErr != nil {
		c.log.Warn("measurement cache write failed", "sensorId", sensorID, "error", res.persistErr)
		return res.record, res.persistErr
	}
	return res.record, nil
}
