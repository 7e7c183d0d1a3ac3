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

	"github.com/Varun5711/placeshare/internal/models"
)

// ErrNoMatch is returned when the provider cannot resolve an address.
var ErrNoMatch = errors.New("could not find location for the address")

type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Location, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client resolves addresses through the LocationIQ search API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *Client) Geocode(ctx context.Context, address string) (models.Location, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", address)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/search.php?"+params.Encode(), nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.Location{}, ErrNoMatch
	}
	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("geocode provider returned status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Location{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return models.Location{}, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}

	return models.Location{Lat: lat, Lng: lng}, nil
}
