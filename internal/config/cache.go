package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// CacheConfig defines settings for the availability response cache.  When
// Enabled is false or no Redis client is configured, caching is disabled.
// TTL bounds how long an entry may live even if no booking invalidates it.
// Prefix namespaces keys and MaxBodyBytes caps the size of cached bodies.
type CacheConfig struct {
	Enabled      bool          `envconfig:"ENABLED" default:"true"`
	TTL          time.Duration `envconfig:"TTL" default:"30s"`
	Prefix       string        `envconfig:"PREFIX" default:"avail"`
	MaxBodyBytes int           `envconfig:"MAX_BODY_BYTES" default:"1048576"`
}

// LoadCacheConfig reads the CACHE_* environment variables.  Defaults are used
// when variables are not set.
func LoadCacheConfig() (CacheConfig, error) {
	var c CacheConfig
	if err := envconfig.Process("CACHE", &c); err != nil {
		return CacheConfig{}, fmt.Errorf("cache config: %w", err)
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	return c, nil
}
