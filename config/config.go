// Package config materialises facilitator configuration from file,
// environment, and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	x402 "github.com/BranchManager69/dexter-x402"
)

// Config holds all configuration for the facilitator process.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Networks NetworksConfig `mapstructure:"networks"`
	Solana   SolanaConfig   `mapstructure:"solana"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

// NetworksConfig selects which networks the facilitator serves.
type NetworksConfig struct {
	Enabled []string `mapstructure:"enabled"`
}

// SolanaConfig holds the fee payer credentials and RPC access for SVM
// networks. Exactly one of SecretKey and KeygenFile must be set.
type SolanaConfig struct {
	SecretKey  string `mapstructure:"secret_key"`
	KeygenFile string `mapstructure:"keygen_file"`
	RPCURL     string `mapstructure:"rpc_url"`
}

// Load builds configuration from an optional config file, DEXTER_* environment
// variables, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEXTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8402")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.environment", "development")

	v.SetDefault("networks.enabled", []string{x402.SolanaDevnet.ID})

	// Env-only keys need a registered default for AutomaticEnv to surface
	// them through Unmarshal.
	v.SetDefault("solana.secret_key", "")
	v.SetDefault("solana.keygen_file", "")
	v.SetDefault("solana.rpc_url", "")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate rejects misconfiguration before any server state is built. An
// unknown network name is fatal here rather than a per-request error.
func (c *Config) Validate() error {
	if len(c.Networks.Enabled) == 0 {
		return fmt.Errorf("networks.enabled must name at least one network")
	}
	if err := x402.ValidateNetworks(c.Networks.Enabled); err != nil {
		return err
	}
	if c.Solana.SecretKey == "" && c.Solana.KeygenFile == "" {
		return fmt.Errorf("one of solana.secret_key or solana.keygen_file is required")
	}
	if c.Solana.SecretKey != "" && c.Solana.KeygenFile != "" {
		return fmt.Errorf("solana.secret_key and solana.keygen_file are mutually exclusive")
	}
	return nil
}
