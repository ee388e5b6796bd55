package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"patitas/internal/geocode"
	"patitas/internal/normalize"
)

const (
	reversePrefix = "revgeo:"
	searchPrefix  = "fwdgeo:"
)

type Cache struct {
	Client     *redis.Client
	ReverseTTL time.Duration
	SearchTTL  time.Duration
}

func New(redisURL string, reverseTTL, searchTTL time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{Client: client, ReverseTTL: reverseTTL, SearchTTL: searchTTL}, nil
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// reverseKey rounds coordinates to ~1m so nearby marker drags share an entry.
func reverseKey(lat, lng float64) string {
	return fmt.Sprintf("%s%.5f:%.5f", reversePrefix, lat, lng)
}

func searchKey(query string) string {
	return searchPrefix + normalize.Key(query)
}

// GetReverse returns a cached reverse-geocode result. The bool reports a
// hit; a cached "nothing there" is a hit with a nil place.
func (c *Cache) GetReverse(ctx context.Context, lat, lng float64) (*geocode.Place, bool) {
	val, err := c.Client.Get(ctx, reverseKey(lat, lng)).Bytes()
	if err != nil {
		return nil, false
	}
	if len(val) == 0 {
		return nil, true
	}
	var p geocode.Place
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// SetReverse caches a reverse-geocode result. A nil place is cached as
// an empty value so repeated lookups over the ocean stay cheap.
func (c *Cache) SetReverse(ctx context.Context, lat, lng float64, p *geocode.Place) error {
	var data []byte
	if p != nil {
		var err error
		if data, err = json.Marshal(p); err != nil {
			return fmt.Errorf("marshal place: %w", err)
		}
	}
	return c.Client.Set(ctx, reverseKey(lat, lng), data, c.ReverseTTL).Err()
}

// GetSearch returns cached forward-geocode candidates for a query.
func (c *Cache) GetSearch(ctx context.Context, query string) ([]geocode.Place, bool) {
	val, err := c.Client.Get(ctx, searchKey(query)).Bytes()
	if err != nil {
		return nil, false
	}
	var places []geocode.Place
	if err := json.Unmarshal(val, &places); err != nil {
		return nil, false
	}
	return places, true
}

// SetSearch caches forward-geocode candidates for a query.
func (c *Cache) SetSearch(ctx context.Context, query string, places []geocode.Place) error {
	data, err := json.Marshal(places)
	if err != nil {
		return fmt.Errorf("marshal places: %w", err)
	}
	return c.Client.Set(ctx, searchKey(query), data, c.SearchTTL).Err()
}
