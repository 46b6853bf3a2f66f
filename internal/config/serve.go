package config

import "github.com/spf13/pflag"

// Serve holds configuration for the API server.
type Serve struct {
	Addr      string
	RPCURL    string
	PGDSN     string
	LogLevel  string
	Analytics Analytics
}

// LoadServe merges config file, environment variables, and flags into
// a Serve config.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (Serve, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Serve{}, err
	}

	v.SetDefault("addr", ":8080")
	v.SetDefault("log-level", "info")
	setAnalyticsDefaults(v)

	analytics, err := analyticsFromViper(v)
	if err != nil {
		return Serve{}, err
	}

	return Serve{
		Addr:      v.GetString("addr"),
		RPCURL:    v.GetString("rpc"),
		PGDSN:     v.GetString("pg-dsn"),
		LogLevel:  v.GetString("log-level"),
		Analytics: analytics,
	}, nil
}
