package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL             string
	Factories          []string
	CacheTTL           time.Duration
	CachePath          string
	CacheEnabled       bool
	MaxHops            int
	ExploreCap         int
	DefaultSlippageBps uint32
	GasPriceGwei       float64
	FetchConcurrency   int
	MaxRetries         int
	RetryBackoff       time.Duration
	ReadTimeout        time.Duration
	FetchTimeout       time.Duration
	PostgresDSN        string
	LogLevel           string
}

// Factory is one parsed entry of the factories list.
type Factory struct {
	Name    string
	Address common.Address
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AGGREGATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("cache-ttl", 5*time.Minute)
	v.SetDefault("cache-path", "./data/pools.json")
	v.SetDefault("cache-enabled", true)
	v.SetDefault("max-hops", 3)
	v.SetDefault("explore-cap", 4096)
	v.SetDefault("slippage-bps", uint32(50))
	v.SetDefault("gas-price-gwei", 20.0)
	v.SetDefault("fetch-concurrency", 8)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("read-timeout", 10*time.Second)
	v.SetDefault("fetch-timeout", 10*time.Minute)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:             v.GetString("rpc"),
		Factories:          getStringSlice(v, "factory"),
		CacheTTL:           v.GetDuration("cache-ttl"),
		CachePath:          v.GetString("cache-path"),
		CacheEnabled:       v.GetBool("cache-enabled"),
		MaxHops:            v.GetInt("max-hops"),
		ExploreCap:         v.GetInt("explore-cap"),
		DefaultSlippageBps: v.GetUint32("slippage-bps"),
		GasPriceGwei:       v.GetFloat64("gas-price-gwei"),
		FetchConcurrency:   v.GetInt("fetch-concurrency"),
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		ReadTimeout:        v.GetDuration("read-timeout"),
		FetchTimeout:       v.GetDuration("fetch-timeout"),
		PostgresDSN:        v.GetString("pg-dsn"),
		LogLevel:           v.GetString("log-level"),
	}

	return cfg, nil
}

// ParseFactories parses "Name=0xAddress" entries from the factories list.
func (c Config) ParseFactories() ([]Factory, error) {
	out := make([]Factory, 0, len(c.Factories))
	for _, raw := range c.Factories {
		name, addr, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("factory %q: want name=0xaddress", raw)
		}
		name = strings.TrimSpace(name)
		addr = strings.TrimSpace(addr)
		if name == "" || !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("factory %q: want name=0xaddress", raw)
		}
		out = append(out, Factory{Name: name, Address: common.HexToAddress(addr)})
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
