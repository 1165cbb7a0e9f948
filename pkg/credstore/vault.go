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

package credstore

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

const (
	defaultVaultMount  = "secret"
	defaultVaultPrefix = "crusty"
	vaultValueField    = "value"
)

// VaultConfig configures the Vault KV version 2 store.
type VaultConfig struct {
	Address   string        `yaml:"address" mapstructure:"address"`
	Token     string        `yaml:"token" mapstructure:"token"`
	Namespace string        `yaml:"namespace" mapstructure:"namespace"`
	Mount     string        `yaml:"mount" mapstructure:"mount"`
	Prefix    string        `yaml:"prefix" mapstructure:"prefix"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Validate checks if the configuration is valid and fills defaults.
func (c *VaultConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: vault address is required", crustyerr.ErrStorage)
	}
	if c.Token == "" {
		return fmt.Errorf("%w: vault token is required", crustyerr.ErrStorage)
	}
	if c.Mount == "" {
		c.Mount = defaultVaultMount
	}
	if c.Prefix == "" {
		c.Prefix = defaultVaultPrefix
	}
	return nil
}

// Vault is a Store backed by a Vault KV version 2 secrets engine. Entries live
// at <mount>/data/<prefix>/<service>/<account> with the secret in the
// "value" field.
type Vault struct {
	config *VaultConfig
	client *vault.Client
}

// NewVault creates a Vault store.
func NewVault(config *VaultConfig) (*Vault, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: vault config is required", crustyerr.ErrStorage)
	}
	cfg := *config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address
	if cfg.Timeout > 0 {
		vaultConfig.Timeout = cfg.Timeout
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create vault client: %w", crustyerr.ErrStorage, err)
	}
	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	return &Vault{config: &cfg, client: client}, nil
}

func (v *Vault) dataPath(service, account string) string {
	return path.Join(v.config.Mount, "data", v.config.Prefix, service, account)
}

func (v *Vault) metadataPath(service, account string) string {
	return path.Join(v.config.Mount, "metadata", v.config.Prefix, service, account)
}

func validateVault(service, account string) error {
	if err := validate(service, account); err != nil {
		return err
	}
	if strings.Contains(service, "..") || strings.Contains(account, "..") {
		return fmt.Errorf("%w: credential names cannot contain '..'", crustyerr.ErrStorage)
	}
	return nil
}

// Set implements Store.
func (v *Vault) Set(ctx context.Context, service, account, secret string) error {
	if err := validateVault(service, account); err != nil {
		return err
	}

	data := map[string]interface{}{
		"data": map[string]interface{}{
			vaultValueField: secret,
		},
	}
	if _, err := v.client.Logical().WriteWithContext(ctx, v.dataPath(service, account), data); err != nil {
		return fmt.Errorf("%w: failed to write %s/%s to vault: %w", crustyerr.ErrStorage, service, account, err)
	}
	return nil
}

// Get implements Store.
func (v *Vault) Get(ctx context.Context, service, account string) (string, error) {
	if err := validateVault(service, account); err != nil {
		return "", err
	}

	secret, err := v.client.Logical().ReadWithContext(ctx, v.dataPath(service, account))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read %s/%s from vault: %w", crustyerr.ErrStorage, service, account, err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrNotFound
	}

	// A deleted KV v2 version reads back with data set to null.
	inner, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", ErrNotFound
	}
	value, ok := inner[vaultValueField].(string)
	if !ok {
		return "", fmt.Errorf("%w: vault entry %s/%s has no %q field", crustyerr.ErrStorage, service, account, vaultValueField)
	}
	return value, nil
}

// Delete implements Store. All versions and metadata of the entry are removed.
func (v *Vault) Delete(ctx context.Context, service, account string) error {
	if err := validateVault(service, account); err != nil {
		return err
	}

	if _, err := v.client.Logical().DeleteWithContext(ctx, v.metadataPath(service, account)); err != nil {
		return fmt.Errorf("%w: failed to delete %s/%s from vault: %w", crustyerr.ErrStorage, service, account, err)
	}
	return nil
}
