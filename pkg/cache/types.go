package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by GetJSON when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// Stats is a point in time view of cache counters
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	Expirations int64   `json:"expirations"`
	Items       int64   `json:"items"`
	HitRate     float64 `json:"hit_rate"`
}

// WithHitRate fills HitRate from Hits and Misses
func (s Stats) WithHitRate() Stats {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// StatsProvider is implemented by anything exposing cache counters
type StatsProvider interface {
	Stats() Stats
}

// Store is the byte oriented cache shared by the HTTP services
type Store = Cache[[]byte]

// NewStore creates a byte cache that copies payloads in and out
func NewStore(defaultTTL time.Duration) *Store {
	return New[[]byte](defaultTTL, WithClone(CloneBytes))
}

// GetJSON decodes the payload stored under key into dest
func GetJSON(c *Store, key string, dest interface{}) error {
	data, ok := c.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.Delete(key)
		return fmt.Errorf("decode cached %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key for ttl
func SetJSON(c *Store, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q for cache: %w", key, err)
	}
	c.SetWithTTL(key, data, ttl)
	return nil
}
