package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Varun5711/placeshare/internal/cache"
	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Timeout: time.Second})
}

func TestClient_Geocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search.php", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "20 W 34th St, New York", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`[{"lat":"40.7484405","lon":"-73.9856644"},{"lat":"1","lon":"2"}]`))
	})

	loc, err := client.Geocode(context.Background(), "20 W 34th St, New York")
	require.NoError(t, err)
	assert.InDelta(t, 40.7484405, loc.Lat, 1e-9)
	assert.InDelta(t, -73.9856644, loc.Lng, 1e-9)
}

func TestClient_Geocode_NoMatch(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"empty array", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}},
		{"provider 404", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Unable to geocode"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.Geocode(context.Background(), "nowhere")
			assert.ErrorIs(t, err, ErrNoMatch)
		})
	}
}

func TestClient_Geocode_ProviderFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Geocode(context.Background(), "Paris")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatch)
}

func TestClient_Geocode_BadCoordinates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"north","lon":"2"}]`))
	})

	_, err := client.Geocode(context.Background(), "Paris")
	require.Error(t, err)
}

type countingGeocoder struct {
	calls int
	loc   models.Location
	err   error
}

func (g *countingGeocoder) Geocode(ctx context.Context, address string) (models.Location, error) {
	g.calls++
	return g.loc, g.err
}

func TestCachedGeocoder_MemoizesNormalizedAddress(t *testing.T) {
	next := &countingGeocoder{loc: models.Location{Lat: 1, Lng: 2}}
	g := NewCachedGeocoder(next, cache.NewMultiTierCache(10, nil, time.Hour), logger.Discard())

	first, err := g.Geocode(context.Background(), "Eiffel  Tower")
	require.NoError(t, err)
	second, err := g.Geocode(context.Background(), " eiffel tower ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)
}

func TestCachedGeocoder_DoesNotCacheFailures(t *testing.T) {
	next := &countingGeocoder{err: ErrNoMatch}
	g := NewCachedGeocoder(next, cache.NewMultiTierCache(10, nil, time.Hour), logger.Discard())

	_, err := g.Geocode(context.Background(), "nowhere")
	assert.True(t, errors.Is(err, ErrNoMatch))
	_, err = g.Geocode(context.Background(), "nowhere")
	assert.True(t, errors.Is(err, ErrNoMatch))

	assert.Equal(t, 2, next.calls)
}
