// Package geocode resolves free-text addresses to coordinates via the
// Nominatim search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNoMatch is returned when the address resolves to no results.
var ErrNoMatch = errors.New("geocode: no match for address")

// Point is a geocoded coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Client is an HTTP client for the Nominatim search endpoint.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a client against the public Nominatim instance.
// Nominatim's usage policy requires an identifying User-Agent.
func NewClient(userAgent string) *Client {
	return &Client{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves an address to coordinates, using the first match.
func (c *Client) Geocode(ctx context.Context, address string) (Point, error) {
	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", c.BaseURL, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Point{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.BaseURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Point{}, fmt.Errorf("failed to read response: %w", err)
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return Point{}, fmt.Errorf("malformed response: %w", err)
	}
	if len(results) == 0 {
		return Point{}, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("malformed latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("malformed longitude %q: %w", results[0].Lon, err)
	}
	return Point{Lat: lat, Lon: lon}, nil
}
