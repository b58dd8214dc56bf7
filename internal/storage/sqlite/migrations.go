package sqlite

// schema contains the database schema DDL.
const schema = `
-- Stations (replaced wholesale on refresh)
CREATE TABLE IF NOT EXISTS stations (
    id INTEGER PRIMARY KEY,
    station_name TEXT NOT NULL,
    gegr_lat TEXT NOT NULL,
    gegr_lon TEXT NOT NULL
);

-- Sensors, keyed by owning station for upserts
CREATE TABLE IF NOT EXISTS sensors (
    id INTEGER PRIMARY KEY,
    station_id INTEGER NOT NULL,
    param_name TEXT,
    param_formula TEXT,
    param_code TEXT,
    param_id INTEGER
);
CREATE INDEX IF NOT EXISTS idx_sensors_station ON sensors(station_id);

-- Measurement series, one JSON-encoded sample list per sensor
CREATE TABLE IF NOT EXISTS measurements (
    sensor_id INTEGER PRIMARY KEY,
    values_json TEXT NOT NULL,
    last_updated DATETIME NOT NULL
);
`
