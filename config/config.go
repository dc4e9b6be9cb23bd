package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultRPCEndpoint is used when neither the config file nor the
// XANDEUM_RPC environment variable provides one.
const DefaultRPCEndpoint = "https://api.devnet.xandeum.com:8899"

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	RPC    RPCConfig    `mapstructure:"rpc"`
	Geo    GeoConfig    `mapstructure:"geo"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RPCConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Timeout    int    `mapstructure:"timeout_seconds"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type GeoConfig struct {
	// DBPath points at an optional local MaxMind City database. Empty means
	// lookups go straight to the HTTP API.
	DBPath  string `mapstructure:"db_path"`
	Timeout int    `mapstructure:"timeout_seconds"`
}

type CacheConfig struct {
	// RefreshInterval drives the background warm loop of the serve command.
	// The per-entry TTLs themselves are fixed constants in the services
	// package, not configuration.
	RefreshInterval int `mapstructure:"refresh_interval_seconds"`
	SweepInterval   int `mapstructure:"sweep_interval_seconds"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment (PNODEATLAS_ prefix; XANDEUM_RPC overrides rpc.endpoint).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("rpc.endpoint", DefaultRPCEndpoint)
	v.SetDefault("rpc.timeout_seconds", 5)
	v.SetDefault("rpc.max_retries", 3)
	v.SetDefault("geo.db_path", "")
	v.SetDefault("geo.timeout_seconds", 5)
	v.SetDefault("cache.refresh_interval_seconds", 30)
	v.SetDefault("cache.sweep_interval_seconds", 300)

	v.SetEnvPrefix("pnodeatlas")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("rpc.endpoint", "XANDEUM_RPC"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		// A missing default config file is fine, defaults + env apply.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPC.Timeout) * time.Second
}

func (c *Config) GeoTimeout() time.Duration {
	return time.Duration(c.Geo.Timeout) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Cache.RefreshInterval) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepInterval) * time.Second
}
