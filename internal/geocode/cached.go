package geocode

import (
	"context"
	"strings"

	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/models"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
}

// CachedGeocoder memoizes successful lookups. Misses and failures always go
// to the wrapped geocoder.
type CachedGeocoder struct {
	next  Geocoder
	cache Cache
	log   *logger.Logger
}

func NewCachedGeocoder(next Geocoder, cache Cache, log *logger.Logger) *CachedGeocoder {
	return &CachedGeocoder{
		next:  next,
		cache: cache,
		log:   log,
	}
}

func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (models.Location, error) {
	key := cacheKey(address)

	var loc models.Location
	found, err := g.cache.GetJSON(ctx, key, &loc)
	if err != nil {
		g.log.Warn("Failed to read geocode cache for %q: %v", address, err)
	}
	if found {
		return loc, nil
	}

	loc, err = g.next.Geocode(ctx, address)
	if err != nil {
		return models.Location{}, err
	}

	if err := g.cache.SetJSON(ctx, key, loc); err != nil {
		g.log.Warn("Failed to write geocode cache for %q: %v", address, err)
	}

	return loc, nil
}

func cacheKey(address string) string {
	return "geocode:" + strings.ToLower(strings.Join(strings.Fields(address), " "))
}
