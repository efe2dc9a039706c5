// Package config parses the server's initializationOptions payload into
// a ServerConfig, falling back to documented defaults whenever a field
// is absent or the payload itself can't be decoded.
package config

import (
	"encoding/json"
	"time"
)

const (
	// DefaultSchemaTTLSecs is schema_ttl_secs's default: 8 hours.
	DefaultSchemaTTLSecs = 28800
	// DefaultSchemaCacheCapacity is schema_cache_capacity's default.
	DefaultSchemaCacheCapacity = 128
)

// ServerConfig holds the server's tunable behavior, sourced from the
// client's initializationOptions.
type ServerConfig struct {
	// SchemaTTLSecs is how long a fetched schema stays in the positive
	// cache before it's considered stale.
	SchemaTTLSecs uint64 `json:"schema_ttl_secs"`
	// CacheDir is reserved for a future on-disk schema cache; it is
	// accepted and stored but not yet read from.
	CacheDir string `json:"cache_dir"`
	// SchemaCacheCapacity bounds the positive cache's entry count.
	SchemaCacheCapacity uint64 `json:"schema_cache_capacity"`
}

// Default returns a ServerConfig populated with documented defaults.
func Default() ServerConfig {
	return ServerConfig{
		SchemaTTLSecs:       DefaultSchemaTTLSecs,
		SchemaCacheCapacity: DefaultSchemaCacheCapacity,
	}
}

// Parse decodes raw (the initialize request's initializationOptions) into
// a ServerConfig. A nil/empty payload, or one that fails to decode,
// yields Default(); unknown keys are ignored.
func Parse(raw json.RawMessage) ServerConfig {
	cfg := Default()

	if len(raw) == 0 {
		return cfg
	}

	var partial struct {
		SchemaTTLSecs       *uint64 `json:"schema_ttl_secs"`
		CacheDir            *string `json:"cache_dir"`
		SchemaCacheCapacity *uint64 `json:"schema_cache_capacity"`
	}

	if err := json.Unmarshal(raw, &partial); err != nil {
		return Default()
	}

	if partial.SchemaTTLSecs != nil {
		cfg.SchemaTTLSecs = *partial.SchemaTTLSecs
	}

	if partial.CacheDir != nil {
		cfg.CacheDir = *partial.CacheDir
	}

	if partial.SchemaCacheCapacity != nil {
		cfg.SchemaCacheCapacity = *partial.SchemaCacheCapacity
	}

	return cfg
}

// TTL converts SchemaTTLSecs to a time.Duration for use with
// schema.NewCache.
func (c ServerConfig) TTL() time.Duration {
	return time.Duration(c.SchemaTTLSecs) * time.Second
}
