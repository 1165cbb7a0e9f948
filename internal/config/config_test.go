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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/secretsharing"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/stream"
	"github.com/jeremyhahn/go-crusty/pkg/share"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAppName, cfg.AppName)
	assert.Equal(t, filepath.Join(home, ".crusty", "shares"), cfg.ShareDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "local", cfg.Backend.Type)
	assert.Equal(t, "keyring", cfg.CredentialStore.Type)
	assert.Equal(t, 10*time.Second, cfg.CredentialStore.Vault.Timeout)
	assert.Equal(t, secretsharing.SchemeGF256, cfg.Scheme())
	assert.Equal(t, share.FormatText, cfg.SecondaryFormat())
	assert.Equal(t, share.FormatMnemonic, cfg.RecoveryFormat())
	assert.Equal(t, stream.DefaultChunkSize, cfg.Codec.StreamChunkSize)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	content := `
app_name: vaultapp
share_dir: /var/lib/crusty/shares
logging:
  level: debug
  format: json
backend:
  type: embedded
  embedded:
    connection_type: serial
    device_id: ttyUSB0
    parameters:
      baud: "115200"
credential_store:
  type: vault
  vault:
    address: http://127.0.0.1:8200
    token: root
    timeout: 3s
sharing:
  scheme: prime
  secondary_format: binary
  recovery_format: text
codec:
  nonce_tracking: true
  stream_chunk_size: 4096
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "vaultapp", cfg.AppName)
	assert.Equal(t, "/var/lib/crusty/shares", cfg.ShareDir)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "embedded", cfg.Backend.Type)
	assert.Equal(t, "serial", cfg.Backend.Embedded.ConnectionType)
	assert.Equal(t, "ttyUSB0", cfg.Backend.Embedded.DeviceID)
	assert.Equal(t, "115200", cfg.Backend.Embedded.Parameters["baud"])
	assert.Equal(t, "http://127.0.0.1:8200", cfg.CredentialStore.Vault.Address)
	assert.Equal(t, 3*time.Second, cfg.CredentialStore.Vault.Timeout)
	assert.Equal(t, "secret", cfg.CredentialStore.Vault.Mount)
	assert.Equal(t, secretsharing.SchemePrime, cfg.Scheme())
	assert.Equal(t, share.FormatBinary, cfg.SecondaryFormat())
	assert.Equal(t, share.FormatText, cfg.RecoveryFormat())
	assert.True(t, cfg.Codec.NonceTracking)
	assert.Equal(t, 4096, cfg.Codec.StreamChunkSize)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CRUSTY_SHARING_SCHEME", "prime")
	t.Setenv("CRUSTY_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prime", cfg.Sharing.Scheme)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sharing:\n  scheme: rot13\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sharing.scheme")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty app name", mutate: func(c *Config) { c.AppName = " " }, wantErr: "app_name"},
		{name: "empty share dir", mutate: func(c *Config) { c.ShareDir = "" }, wantErr: "share_dir"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "bad backend", mutate: func(c *Config) { c.Backend.Type = "cloud" }, wantErr: "backend.type"},
		{name: "bad connection", mutate: func(c *Config) { c.Backend.Embedded.ConnectionType = "bluetooth" }, wantErr: "connection_type"},
		{name: "bad store", mutate: func(c *Config) { c.CredentialStore.Type = "etcd" }, wantErr: "credential_store.type"},
		{name: "vault without address", mutate: func(c *Config) { c.CredentialStore.Type = "vault" }, wantErr: "credential_store.vault"},
		{name: "memory store", mutate: func(c *Config) { c.CredentialStore.Type = "memory" }},
		{name: "bad secondary format", mutate: func(c *Config) { c.Sharing.SecondaryFormat = "pdf" }, wantErr: "secondary_format"},
		{name: "bad recovery format", mutate: func(c *Config) { c.Sharing.RecoveryFormat = "pdf" }, wantErr: "recovery_format"},
		{name: "zero chunk", mutate: func(c *Config) { c.Codec.StreamChunkSize = 0 }, wantErr: "stream_chunk_size"},
		{name: "huge chunk", mutate: func(c *Config) { c.Codec.StreamChunkSize = stream.MaxChunkSize + 1 }, wantErr: "stream_chunk_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.AppName = "roundtrip"
	cfg.Sharing.Scheme = "prime"
	cfg.Codec.NonceTracking = true
	cfg.Backend.Embedded.Parameters = map[string]string{"port": "8080"}
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.AppName)
	assert.Equal(t, cfg.ShareDir, loaded.ShareDir)
	assert.Equal(t, secretsharing.SchemePrime, loaded.Scheme())
	assert.True(t, loaded.Codec.NonceTracking)
	assert.Equal(t, "8080", loaded.Backend.Embedded.Parameters["port"])
	assert.Equal(t, cfg.CredentialStore.Vault.Timeout, loaded.CredentialStore.Vault.Timeout)
	assert.Equal(t, cfg.Metrics, loaded.Metrics)
}
