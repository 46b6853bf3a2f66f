package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// newViper builds a viper instance that merges config file, environment
// variables (POSITIONSCOPE_ prefix), and flags, in ascending priority.
func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("POSITIONSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

// Analytics holds the named policy parameters of the analytics core.
// These are policy choices, not derived values; every one is
// overridable through flags, env, or config file.
type Analytics struct {
	FeeRate       decimal.Decimal
	PoolShare     decimal.Decimal
	WarnProximity decimal.Decimal
	CriticalLoss  decimal.Decimal
	LookbackHours int
}

func setAnalyticsDefaults(v *viper.Viper) {
	v.SetDefault("fee-rate", "0.003")
	v.SetDefault("pool-share", "0.01")
	v.SetDefault("warn-proximity", "0.10")
	v.SetDefault("critical-loss", "0.05")
	v.SetDefault("lookback-hours", 24)
}

func analyticsFromViper(v *viper.Viper) (Analytics, error) {
	a := Analytics{LookbackHours: v.GetInt("lookback-hours")}

	for _, field := range []struct {
		key  string
		dest *decimal.Decimal
	}{
		{"fee-rate", &a.FeeRate},
		{"pool-share", &a.PoolShare},
		{"warn-proximity", &a.WarnProximity},
		{"critical-loss", &a.CriticalLoss},
	} {
		parsed, err := decimal.NewFromString(v.GetString(field.key))
		if err != nil {
			return Analytics{}, fmt.Errorf("parse %s: %w", field.key, err)
		}
		if parsed.Sign() < 0 {
			return Analytics{}, fmt.Errorf("%s must not be negative", field.key)
		}
		*field.dest = parsed
	}

	if a.LookbackHours <= 0 {
		return Analytics{}, fmt.Errorf("lookback-hours must be positive")
	}

	return a, nil
}
