// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-crusty.
//
// go-crusty is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-crusty/pkg/backend"
	"github.com/jeremyhahn/go-crusty/pkg/credstore"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/secretsharing"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/stream"
	"github.com/jeremyhahn/go-crusty/pkg/logging"
	"github.com/jeremyhahn/go-crusty/pkg/share"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. CRUSTY_SHARING_SCHEME.
	EnvPrefix = "CRUSTY"

	// DefaultAppName is the credential store service name.
	DefaultAppName = "crusty"

	configName = "config"
	configType = "yaml"
	homeDir    = ".crusty"
)

// Config represents the complete crusty configuration
type Config struct {
	AppName         string                `yaml:"app_name" mapstructure:"app_name"`
	ShareDir        string                `yaml:"share_dir" mapstructure:"share_dir"`
	OperationLog    string                `yaml:"operation_log" mapstructure:"operation_log"`
	Logging         LoggingConfig         `yaml:"logging" mapstructure:"logging"`
	Backend         BackendConfig         `yaml:"backend" mapstructure:"backend"`
	CredentialStore CredentialStoreConfig `yaml:"credential_store" mapstructure:"credential_store"`
	Sharing         SharingConfig         `yaml:"sharing" mapstructure:"sharing"`
	Codec           CodecConfig           `yaml:"codec" mapstructure:"codec"`
	Metrics         MetricsConfig         `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// BackendConfig selects the encryption backend
type BackendConfig struct {
	Type     string         `yaml:"type" mapstructure:"type"`
	Embedded EmbeddedConfig `yaml:"embedded" mapstructure:"embedded"`
}

// EmbeddedConfig describes the embedded device connection
type EmbeddedConfig struct {
	ConnectionType string            `yaml:"connection_type" mapstructure:"connection_type"`
	DeviceID       string            `yaml:"device_id" mapstructure:"device_id"`
	Parameters     map[string]string `yaml:"parameters,omitempty" mapstructure:"parameters"`
}

// CredentialStoreConfig selects where primary shares are kept
type CredentialStoreConfig struct {
	Type    string                  `yaml:"type" mapstructure:"type"`
	Keyring credstore.KeyringConfig `yaml:"keyring" mapstructure:"keyring"`
	Vault   credstore.VaultConfig   `yaml:"vault" mapstructure:"vault"`
}

// SharingConfig controls key splitting
type SharingConfig struct {
	Scheme          string `yaml:"scheme" mapstructure:"scheme"`
	SecondaryFormat string `yaml:"secondary_format" mapstructure:"secondary_format"`
	RecoveryFormat  string `yaml:"recovery_format" mapstructure:"recovery_format"`
}

// CodecConfig tunes the data and stream codecs
type CodecConfig struct {
	NonceTracking   bool `yaml:"nonce_tracking" mapstructure:"nonce_tracking"`
	StreamChunkSize int  `yaml:"stream_chunk_size" mapstructure:"stream_chunk_size"`
}

// MetricsConfig controls the Prometheus textfile dump
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// HomeDir returns the per-user crusty directory, falling back to the
// working directory when no home is available.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return homeDir
	}
	return filepath.Join(home, homeDir)
}

// DefaultPath is the config file used when no path is given.
func DefaultPath() string {
	return filepath.Join(HomeDir(), configName+"."+configType)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	base := HomeDir()
	return &Config{
		AppName:      DefaultAppName,
		ShareDir:     filepath.Join(base, "shares"),
		OperationLog: filepath.Join(base, "operations.log"),
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Backend: BackendConfig{
			Type: string(backend.TypeLocal),
			Embedded: EmbeddedConfig{
				ConnectionType: backend.ConnectionUSB.String(),
			},
		},
		CredentialStore: CredentialStoreConfig{
			Type: string(credstore.TypeKeyring),
			Vault: credstore.VaultConfig{
				Mount:   "secret",
				Prefix:  DefaultAppName,
				Timeout: 10 * time.Second,
			},
		},
		Sharing: SharingConfig{
			Scheme:          secretsharing.SchemeGF256.String(),
			SecondaryFormat: share.FormatText.String(),
			RecoveryFormat:  share.FormatMnemonic.String(),
		},
		Codec: CodecConfig{
			StreamChunkSize: stream.DefaultChunkSize,
		},
		Metrics: MetricsConfig{
			Textfile: filepath.Join(base, "metrics.prom"),
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app_name", d.AppName)
	v.SetDefault("share_dir", d.ShareDir)
	v.SetDefault("operation_log", d.OperationLog)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("backend.type", d.Backend.Type)
	v.SetDefault("backend.embedded.connection_type", d.Backend.Embedded.ConnectionType)
	v.SetDefault("backend.embedded.device_id", d.Backend.Embedded.DeviceID)
	v.SetDefault("credential_store.type", d.CredentialStore.Type)
	v.SetDefault("credential_store.keyring.backends", d.CredentialStore.Keyring.Backends)
	v.SetDefault("credential_store.keyring.file_dir", d.CredentialStore.Keyring.FileDir)
	v.SetDefault("credential_store.keyring.file_password", d.CredentialStore.Keyring.FilePassword)
	v.SetDefault("credential_store.vault.address", d.CredentialStore.Vault.Address)
	v.SetDefault("credential_store.vault.token", d.CredentialStore.Vault.Token)
	v.SetDefault("credential_store.vault.namespace", d.CredentialStore.Vault.Namespace)
	v.SetDefault("credential_store.vault.mount", d.CredentialStore.Vault.Mount)
	v.SetDefault("credential_store.vault.prefix", d.CredentialStore.Vault.Prefix)
	v.SetDefault("credential_store.vault.timeout", d.CredentialStore.Vault.Timeout)
	v.SetDefault("sharing.scheme", d.Sharing.Scheme)
	v.SetDefault("sharing.secondary_format", d.Sharing.SecondaryFormat)
	v.SetDefault("sharing.recovery_format", d.Sharing.RecoveryFormat)
	v.SetDefault("codec.nonce_tracking", d.Codec.NonceTracking)
	v.SetDefault("codec.stream_chunk_size", d.Codec.StreamChunkSize)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Load reads configuration from path, applies CRUSTY_* environment
// overrides and validates the result. An empty path searches ~/.crusty and
// the working directory for config.yaml; a missing file there is not an
// error, but a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigType(configType)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(HomeDir())
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every named option is known.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AppName) == "" {
		return fmt.Errorf("app_name is required")
	}
	if c.ShareDir == "" {
		return fmt.Errorf("share_dir is required")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("logging.format: unsupported format %q", c.Logging.Format)
	}
	if _, err := backend.ParseType(c.Backend.Type); err != nil {
		return fmt.Errorf("backend.type: %w", err)
	}
	if _, err := backend.ParseConnectionType(c.Backend.Embedded.ConnectionType); err != nil {
		return fmt.Errorf("backend.embedded.connection_type: %w", err)
	}
	storeType, err := credstore.ParseType(c.CredentialStore.Type)
	if err != nil {
		return fmt.Errorf("credential_store.type: %w", err)
	}
	if storeType == credstore.TypeVault {
		vc := c.CredentialStore.Vault
		if err := vc.Validate(); err != nil {
			return fmt.Errorf("credential_store.vault: %w", err)
		}
	}
	if _, err := secretsharing.ParseScheme(c.Sharing.Scheme); err != nil {
		return fmt.Errorf("sharing.scheme: %w", err)
	}
	if _, err := share.ParseFormat(c.Sharing.SecondaryFormat); err != nil {
		return fmt.Errorf("sharing.secondary_format: %w", err)
	}
	if _, err := share.ParseFormat(c.Sharing.RecoveryFormat); err != nil {
		return fmt.Errorf("sharing.recovery_format: %w", err)
	}
	if c.Codec.StreamChunkSize <= 0 || c.Codec.StreamChunkSize > stream.MaxChunkSize {
		return fmt.Errorf("codec.stream_chunk_size: %d out of range (1..%d)",
			c.Codec.StreamChunkSize, stream.MaxChunkSize)
	}
	return nil
}

// Scheme returns the parsed sharing scheme.
func (c *Config) Scheme() secretsharing.Scheme {
	s, err := secretsharing.ParseScheme(c.Sharing.Scheme)
	if err != nil {
		return secretsharing.SchemeGF256
	}
	return s
}

// SecondaryFormat returns the parsed secondary share file format.
func (c *Config) SecondaryFormat() share.Format {
	f, err := share.ParseFormat(c.Sharing.SecondaryFormat)
	if err != nil {
		return share.FormatText
	}
	return f
}

// RecoveryFormat returns the parsed recovery share file format.
func (c *Config) RecoveryFormat() share.Format {
	f, err := share.ParseFormat(c.Sharing.RecoveryFormat)
	if err != nil {
		return share.FormatMnemonic
	}
	return f
}

// Save writes the configuration to path as YAML, creating parent
// directories. The file may hold a Vault token, so it is written 0600.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
