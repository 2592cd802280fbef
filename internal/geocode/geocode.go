// Package geocode resolves postal addresses to map coordinates for place
// listings.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vladyslav-onipko/space-server/internal/models"
)

// ErrNoResult means the address could not be resolved; callers surface it as
// a validation failure on the address field.
var ErrNoResult = errors.New("geocode: no result for address")

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (models.Location, error)
}

// NominatimClient queries the OpenStreetMap Nominatim search endpoint.
type NominatimClient struct {
	baseURL string
	client  *http.Client
}

func NewNominatimClient() *NominatimClient {
	return &NominatimClient{
		baseURL: "https://nominatim.openstreetmap.org",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *NominatimClient) Resolve(ctx context.Context, address string) (models.Location, error) {
	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", c.baseURL, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Location{}, err
	}
	req.Header.Set("User-Agent", "space-server")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Location{}, err
	}
	if len(results) == 0 {
		return models.Location{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Location{}, err
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Location{}, err
	}

	return models.Location{Lat: lat, Lng: lng}, nil
}
