package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Snapshot holds configuration for the P&L snapshot job.
type Snapshot struct {
	RPCURL       string
	PGDSN        string
	Out          string
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
	Analytics    Analytics
}

// LoadSnapshot merges config file, environment variables, and flags
// into a Snapshot config.
func LoadSnapshot(cfgFile string, flags *pflag.FlagSet) (Snapshot, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Snapshot{}, err
	}

	v.SetDefault("batch-size", 100)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	setAnalyticsDefaults(v)

	analytics, err := analyticsFromViper(v)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		RPCURL:       v.GetString("rpc"),
		PGDSN:        v.GetString("pg-dsn"),
		Out:          v.GetString("out"),
		BatchSize:    v.GetInt("batch-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
		Analytics:    analytics,
	}, nil
}
