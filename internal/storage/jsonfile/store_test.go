package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aqmon/internal/airquality"
	"aqmon/internal/storage"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, dir
}

func ptr(v float64) *float64 { return &v }

func TestStationsRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	stations := []airquality.Station{
		{ID: 1, Name: "A", Lat: "52.0", Lon: "17.0"},
		{ID: 2, Name: "B", Lat: "50.1", Lon: "19.9"},
	}
	require.NoError(t, store.SaveStations(ctx, stations))

	loaded, err := store.LoadStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, stations, loaded)
}

func TestSaveStationsReplacesWholesale(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveStations(ctx, []airquality.Station{{ID: 1, Name: "old"}}))
	require.NoError(t, store.SaveStations(ctx, []airquality.Station{{ID: 2, Name: "new"}}))

	loaded, err := store.LoadStations(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 2, loaded[0].ID)
}

func TestLoadStationsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	loaded, err := store.LoadStations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestUpsertSensorsReplacesOnlyOwnStation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	setA1 := []airquality.Sensor{
		{ID: 7, StationID: 42, Param: airquality.Param{Code: "PM10", Name: "pył zawieszony PM10"}},
		{ID: 8, StationID: 42, Param: airquality.Param{Code: "NO2"}},
	}
	setB := []airquality.Sensor{
		{ID: 20, StationID: 99, Param: airquality.Param{Code: "SO2"}},
	}
	require.NoError(t, store.UpsertSensorsForStation(ctx, 42, setA1))
	require.NoError(t, store.UpsertSensorsForStation(ctx, 99, setB))

	// Second upsert for station 42 with a different set.
	setA2 := []airquality.Sensor{
		{ID: 9, StationID: 42, Param: airquality.Param{Code: "O3"}},
	}
	require.NoError(t, store.UpsertSensorsForStation(ctx, 42, setA2))

	forA, err := store.SensorsForStation(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, setA2, forA, "exactly the second set remains for station 42")

	forB, err := store.SensorsForStation(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, setB, forB, "station 99 is untouched")

	all, err := store.LoadSensors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSensorsForStationNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.SensorsForStation(context.Background(), 5)
	assert.True(t, storage.IsNotFound(err))
}

func TestUpsertMeasurementsReplacesSeries(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	old := []airquality.Sample{
		{Date: airquality.SampleTime{Time: now.Add(-2 * time.Hour)}, Value: ptr(11)},
	}
	require.NoError(t, store.UpsertMeasurementsForSensor(ctx, 7, old, now.Add(-time.Hour)))
	require.NoError(t, store.UpsertMeasurementsForSensor(ctx, 8, old, now.Add(-time.Hour)))

	replacement := []airquality.Sample{
		{Date: airquality.SampleTime{Time: now.Add(-time.Hour)}, Value: ptr(22)},
		{Date: airquality.SampleTime{Time: now}, Value: nil},
	}
	require.NoError(t, store.UpsertMeasurementsForSensor(ctx, 7, replacement, now))

	rec, err := store.MeasurementsForSensor(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, rec.Values, 2, "old values are replaced, not merged")
	require.NotNil(t, rec.Values[0].Value)
	assert.Equal(t, 22.0, *rec.Values[0].Value)
	assert.Nil(t, rec.Values[1].Value, "null reading survives the round trip")
	assert.True(t, rec.LastUpdated.Equal(now))

	other, err := store.MeasurementsForSensor(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, other.Values, 1, "other sensors' series are untouched")
}

func TestMeasurementsForSensorNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.MeasurementsForSensor(context.Background(), 1)
	assert.True(t, storage.IsNotFound(err))
	assert.False(t, storage.IsStorageError(err))
}

func TestDataSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveStations(ctx, []airquality.Station{{ID: 1, Name: "A", Lat: "52.0", Lon: "17.0"}}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadStations(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "A", loaded[0].Name)
}

func TestCorruptFileReadsAsEmpty(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	// Simulate a crash mid-write.
	require.NoError(t, os.WriteFile(filepath.Join(dir, StationsFile), []byte(`[{"id":1,"statio`), 0o644))

	loaded, err := store.LoadStations(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	_, err = store.SensorsForStation(ctx, 42)
	assert.True(t, storage.IsNotFound(err))
}

func TestBackupKeptBeforeOverwrite(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveStations(ctx, []airquality.Station{{ID: 1, Name: "first"}}))
	require.NoError(t, store.SaveStations(ctx, []airquality.Station{{ID: 2, Name: "second"}}))

	backup, err := os.ReadFile(filepath.Join(dir, StationsFile+".bak"))
	require.NoError(t, err)
	assert.Contains(t, string(backup), "first")
}

func TestUnwritableDirSurfacesStorageError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits do not apply to root")
	}
	store, dir := newTestStore(t)

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	err := store.SaveStations(context.Background(), []airquality.Station{{ID: 1}})
	assert.True(t, storage.IsStorageError(err))
}
