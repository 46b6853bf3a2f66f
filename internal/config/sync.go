package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Sync holds configuration for the subgraph sync job.
type Sync struct {
	GraphURL     string
	PGDSN        string
	PageSize     int
	Interval     time.Duration
	Once         bool
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadSync merges config file, environment variables, and flags into a
// Sync config.
func LoadSync(cfgFile string, flags *pflag.FlagSet) (Sync, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Sync{}, err
	}

	v.SetDefault("page-size", 100)
	v.SetDefault("interval", 5*time.Minute)
	v.SetDefault("once", false)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	return Sync{
		GraphURL:     v.GetString("graph-url"),
		PGDSN:        v.GetString("pg-dsn"),
		PageSize:     v.GetInt("page-size"),
		Interval:     v.GetDuration("interval"),
		Once:         v.GetBool("once"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}
