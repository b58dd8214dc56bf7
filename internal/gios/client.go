// Package gios is an HTTP client for the GIOŚ air-quality REST API.
package gios

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"aqmon/internal/airquality"
)

// DefaultBaseURL is the public GIOŚ REST API root.
const DefaultBaseURL = "https://api.gios.gov.pl/pjp-api/rest"

// Client is an HTTP client for the GIOŚ API. All endpoints are unauthenticated GETs.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client against the public API.
func NewClient() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// DecodeError reports a response body that is not the expected JSON shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FetchStations fetches the full station list.
func (c *Client) FetchStations(ctx context.Context) ([]airquality.Station, error) {
	url := c.BaseURL + "/station/findAll"
	var stations []airquality.Station
	if err := c.getJSON(ctx, url, &stations); err != nil {
		return nil, err
	}
	if stations == nil {
		return nil, &DecodeError{URL: url, Err: errors.New("expected a station array")}
	}
	return stations, nil
}

// FetchSensors fetches the sensors installed at a station. The API response
// does not carry the owning station, so each returned sensor is stamped with
// the requested station id before being handed to the caller.
func (c *Client) FetchSensors(ctx context.Context, stationID int) ([]airquality.Sensor, error) {
	url := fmt.Sprintf("%s/station/sensors/%d", c.BaseURL, stationID)
	var sensors []airquality.Sensor
	if err := c.getJSON(ctx, url, &sensors); err != nil {
		return nil, err
	}
	if sensors == nil {
		return nil, &DecodeError{URL: url, Err: errors.New("expected a sensor array")}
	}
	for i := range sensors {
		sensors[i].StationID = stationID
	}
	return sensors, nil
}

// measurementsPayload matches the data/getData response envelope.
type measurementsPayload struct {
	Key    string              `json:"key"`
	Values []airquality.Sample `json:"values"`
}

// FetchMeasurements fetches the measurement series for a sensor. Null values
// in the response are preserved as nil samples.
func (c *Client) FetchMeasurements(ctx context.Context, sensorID int) ([]airquality.Sample, error) {
	url := fmt.Sprintf("%s/data/getData/%d", c.BaseURL, sensorID)
	var payload measurementsPayload
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, err
	}
	if payload.Values == nil {
		return nil, &DecodeError{URL: url, Err: errors.New("expected a values array")}
	}
	return payload.Values, nil
}

// IsReachable reports whether the API answers at all. It is informational;
// fetch errors already drive the cache fallback chain.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.BaseURL+"/station/findAll", nil)
	if err != nil {
		return false
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}
