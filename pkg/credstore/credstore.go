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

// Package credstore keeps small secrets, such as the primary key share, in a
// credential store addressed by service and account name.
//
// Three stores are provided: the operating system keyring, a HashiCorp Vault
// KV version 2 mount, and an in-memory store for tests and ephemeral use.
package credstore

import (
	"context"
	"fmt"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// ErrNotFound is returned by Get and Delete when no entry exists.
var ErrNotFound = fmt.Errorf("%w: credential not found", crustyerr.ErrStorage)

// Store is a credential store. Implementations are safe for concurrent use.
type Store interface {
	// Set creates or replaces the secret stored under service and account.
	Set(ctx context.Context, service, account, secret string) error

	// Get returns the secret stored under service and account.
	Get(ctx context.Context, service, account string) (string, error)

	// Delete removes the entry for service and account.
	Delete(ctx context.Context, service, account string) error
}

// Type names a Store implementation in configuration.
type Type string

const (
	TypeKeyring Type = "keyring"
	TypeVault   Type = "vault"
	TypeMemory  Type = "memory"
)

// ParseType maps a configuration name to a Type. The empty string selects
// TypeKeyring.
func ParseType(name string) (Type, error) {
	switch Type(name) {
	case "", TypeKeyring:
		return TypeKeyring, nil
	case TypeVault:
		return TypeVault, nil
	case TypeMemory:
		return TypeMemory, nil
	default:
		return "", fmt.Errorf("%w: unknown credential store %q", crustyerr.ErrStorage, name)
	}
}

// Open creates the store selected by t. keyringCfg and vaultCfg configure
// their respective stores and may be nil otherwise.
func Open(t Type, keyringCfg *KeyringConfig, vaultCfg *VaultConfig) (Store, error) {
	switch t {
	case "", TypeKeyring:
		return NewKeyring(keyringCfg), nil
	case TypeVault:
		return NewVault(vaultCfg)
	case TypeMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: unknown credential store %q", crustyerr.ErrStorage, t)
	}
}

func validate(service, account string) error {
	if service == "" {
		return fmt.Errorf("%w: credential service name is required", crustyerr.ErrStorage)
	}
	if account == "" {
		return fmt.Errorf("%w: credential account name is required", crustyerr.ErrStorage)
	}
	return nil
}
