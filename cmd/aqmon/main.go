// Package main is the command-line front end for the air-quality data layer.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"aqmon/internal/airquality"
	"aqmon/internal/config"
	"aqmon/internal/coordinator"
	"aqmon/internal/geocode"
	"aqmon/internal/gios"
	"aqmon/internal/logging"
	"aqmon/internal/storage"
	"aqmon/internal/storage/jsonfile"
	"aqmon/internal/storage/sqlite"
)

const userAgent = "aqmon/0.1 (air-quality monitor)"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg, "aqmon")

	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	client := gios.NewClient()
	if cfg.GiosBaseURL != "" {
		client.BaseURL = cfg.GiosBaseURL
	}
	client.HTTPClient.Timeout = cfg.FetchTimeout

	geocoder := geocode.NewClient(userAgent)
	if cfg.GeocodeBaseURL != "" {
		geocoder.BaseURL = cfg.GeocodeBaseURL
	}

	coord := coordinator.New(store, client, geocoder, log)
	coord.FetchTimeout = cfg.FetchTimeout

	ctx := context.Background()

	switch os.Args[1] {
	case "stations":
		query := ""
		if len(os.Args) > 2 {
			query = os.Args[2]
		}
		listStations(ctx, coord, query, false)
	case "refresh-stations":
		listStations(ctx, coord, "", true)
	case "sensors":
		listSensors(ctx, coord, requireID("station"), false)
	case "refresh-sensors":
		listSensors(ctx, coord, requireID("station"), true)
	case "measurements":
		showMeasurements(ctx, coord, requireID("sensor"), false)
	case "refresh-measurements":
		showMeasurements(ctx, coord, requireID("sensor"), true)
	case "nearby":
		searchNearby(ctx, coord)
	case "status":
		showStatus(ctx, client, store)
	default:
		showUsage()
	}
}

func showUsage() {
	fmt.Println("aqmon - air quality monitor")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  aqmon stations [query]               - List stations, optionally filtered by name")
	fmt.Println("  aqmon refresh-stations               - Re-fetch the station list")
	fmt.Println("  aqmon sensors <stationID>            - List sensors at a station")
	fmt.Println("  aqmon refresh-sensors <stationID>    - Re-fetch sensors for a station")
	fmt.Println("  aqmon measurements <sensorID>        - Show a sensor's measurement series")
	fmt.Println("  aqmon refresh-measurements <sensorID> - Re-fetch a sensor's series")
	fmt.Println("  aqmon nearby <address> <radiusKm>    - Stations within a radius of an address")
	fmt.Println("  aqmon status                         - Show API reachability and cache contents")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  AQMON_DATA_DIR       - Cache directory (default: data)")
	fmt.Println("  AQMON_STORE          - Store backend: json or sqlite (default: json)")
	fmt.Println("  AQMON_FETCH_TIMEOUT  - Network fetch timeout (default: 10s)")
}

func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.StoreBackend == config.BackendSQLite {
		return sqlite.NewFileStore(cfg.SQLitePath)
	}
	return jsonfile.NewStore(cfg.DataDir)
}

// requireID parses the third argument as an integer id.
func requireID(what string) int {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Error: %s ID required\n", what)
		os.Exit(1)
	}
	id, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid %s ID %q\n", what, os.Args[2])
		os.Exit(1)
	}
	return id
}

func listStations(ctx context.Context, coord *coordinator.Coordinator, query string, refresh bool) {
	var stations []airquality.Station
	var err error
	if refresh {
		stations, err = coord.RefreshStations(ctx)
	} else {
		stations, err = coord.Stations(ctx)
	}
	stations = handleDegraded(stations, err)

	stations = airquality.FilterStationsByName(stations, query)
	if len(stations) == 0 {
		fmt.Println("No stations match.")
		return
	}
	for _, s := range stations {
		fmt.Printf("  %6d  %-45s %s, %s\n", s.ID, s.Name, s.Lat, s.Lon)
	}
	fmt.Printf("%d station(s)\n", len(stations))
}

func listSensors(ctx context.Context, coord *coordinator.Coordinator, stationID int, refresh bool) {
	var sensors []airquality.Sensor
	var err error
	if refresh {
		sensors, err = coord.RefreshSensors(ctx, stationID)
	} else {
		sensors, err = coord.GetSensors(ctx, stationID)
	}
	sensors = handleDegraded(sensors, err)

	if len(sensors) == 0 {
		fmt.Printf("No sensors for station %d.\n", stationID)
		return
	}
	for _, s := range sensors {
		fmt.Printf("  %6d  %-10s %s\n", s.ID, s.Param.Code, s.Param.Name)
	}
}

func showMeasurements(ctx context.Context, coord *coordinator.Coordinator, sensorID int, refresh bool) {
	var rec airquality.SeriesRecord
	var err error
	if refresh {
		rec, err = coord.RefreshMeasurements(ctx, sensorID)
	} else {
		rec, err = coord.GetMeasurements(ctx, sensorID)
	}
	if err != nil {
		if len(rec.Values) == 0 {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Warning: data fetched but not cached: %v\n", err)
	}

	fmt.Printf("Sensor %d, last updated %s\n", rec.SensorID, rec.LastUpdated.Format(time.RFC3339))
	for _, v := range rec.Values {
		if v.Value == nil {
			fmt.Printf("  %s  (no reading)\n", v.Date.Format(airquality.SampleTimeLayout))
			continue
		}
		fmt.Printf("  %s  %.2f\n", v.Date.Format(airquality.SampleTimeLayout), *v.Value)
	}

	if stats, ok := airquality.SeriesStats(rec.Values); ok {
		fmt.Printf("min %.2f  max %.2f  avg %.2f  (%d readings, trend %s)\n",
			stats.Min, stats.Max, stats.Avg, stats.Count, airquality.SeriesTrend(rec.Values))
	} else {
		fmt.Println("No usable readings in this series.")
	}
}

func searchNearby(ctx context.Context, coord *coordinator.Coordinator) {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Usage: aqmon nearby <address> <radiusKm>")
		os.Exit(1)
	}
	address := os.Args[2]
	radius, err := strconv.ParseFloat(os.Args[3], 64)
	if err != nil || radius < 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid radius %q\n", os.Args[3])
		os.Exit(1)
	}

	stations, err := coord.StationsNearAddress(ctx, address, radius)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(stations) == 0 {
		fmt.Printf("No stations within %.1f km of %q.\n", radius, address)
		return
	}
	for _, s := range stations {
		fmt.Printf("  %6d  %-45s %s, %s\n", s.ID, s.Name, s.Lat, s.Lon)
	}
}

func showStatus(ctx context.Context, client *gios.Client, store storage.Store) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if client.IsReachable(probeCtx) {
		fmt.Println("API: reachable")
	} else {
		fmt.Println("API: unreachable (offline mode)")
	}

	stations, _ := store.LoadStations(ctx)
	sensors, _ := store.LoadSensors(ctx)
	measurements, _ := store.LoadMeasurements(ctx)
	fmt.Printf("Cache: %d stations, %d sensors, %d measurement series\n",
		len(stations), len(sensors), len(measurements))
}

// handleDegraded prints data that was fetched but failed to persist, exiting
// only when there is no data at all.
func handleDegraded[T any](data []T, err error) []T {
	if err == nil {
		return data
	}
	if len(data) == 0 {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Warning: data fetched but not cached: %v\n", err)
	return data
}
