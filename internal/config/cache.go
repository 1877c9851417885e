package config

import "time"

// CacheConfig defines settings for the availability cache.  When Enabled is
// false or no Redis client is configured, caching is disabled.  TTL bounds
// how long a seat map may be served after a write the cache missed; every
// ledger change invalidates the affected showtimes explicitly.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled: envBool("AVAILABILITY_CACHE_ENABLED", true),
		TTL:     envDur("AVAILABILITY_CACHE_TTL", 30*time.Second),
		Prefix:  envStr("AVAILABILITY_CACHE_PREFIX", "avail"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}
