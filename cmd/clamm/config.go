package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// config holds simulate settings loaded from flags, env, or config file.
type config struct {
	Out           string
	MetricsListen string
	LogLevel      string
}

// loadConfig merges config file, environment variables, and flags.
func loadConfig(cfgFile string, flags *pflag.FlagSet) (config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLAMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return config{
		Out:           v.GetString("out"),
		MetricsListen: v.GetString("metrics-listen"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}
