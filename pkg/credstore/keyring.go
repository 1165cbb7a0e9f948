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
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// KeyringConfig selects and configures the operating system keyring.
type KeyringConfig struct {
	// Backends restricts the keyring implementations tried, in order, using
	// the names understood by 99designs/keyring ("keychain", "wincred",
	// "secret-service", "kwallet", "pass", "file"). Empty allows all.
	Backends []string `yaml:"backends,omitempty" mapstructure:"backends"`

	// FileDir is the directory used by the encrypted file backend.
	FileDir string `yaml:"file_dir,omitempty" mapstructure:"file_dir"`

	// FilePassword unlocks the encrypted file backend. When empty the file
	// backend prompts on the terminal.
	FilePassword string `yaml:"file_password,omitempty" mapstructure:"file_password"`
}

// OpenFunc opens the keyring for one service name.
type OpenFunc func(service string) (keyring.Keyring, error)

// Keyring is a Store backed by the operating system credential store. Each
// service name opens its own keyring, which is cached for reuse.
type Keyring struct {
	open  OpenFunc
	mu    sync.Mutex
	rings map[string]keyring.Keyring
}

// NewKeyring creates a store that opens keyrings according to cfg.
func NewKeyring(cfg *KeyringConfig) *Keyring {
	if cfg == nil {
		cfg = &KeyringConfig{}
	}
	return NewKeyringWithOpener(func(service string) (keyring.Keyring, error) {
		kc := keyring.Config{
			ServiceName:             service,
			KeychainName:            service,
			LibSecretCollectionName: service,
			KWalletAppID:            service,
			KWalletFolder:           service,
			WinCredPrefix:           service,
			FileDir:                 cfg.FileDir,
		}
		for _, b := range cfg.Backends {
			kc.AllowedBackends = append(kc.AllowedBackends, keyring.BackendType(b))
		}
		if cfg.FilePassword != "" {
			kc.FilePasswordFunc = keyring.FixedStringPrompt(cfg.FilePassword)
		} else {
			kc.FilePasswordFunc = keyring.TerminalPrompt
		}
		return keyring.Open(kc)
	})
}

// NewKeyringWithOpener creates a store that obtains keyrings from open.
// Tests pass an opener returning keyring.NewArrayKeyring.
func NewKeyringWithOpener(open OpenFunc) *Keyring {
	return &Keyring{
		open:  open,
		rings: make(map[string]keyring.Keyring),
	}
}

func (k *Keyring) ring(service string) (keyring.Keyring, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if r, ok := k.rings[service]; ok {
		return r, nil
	}
	r, err := k.open(service)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open keyring for %q: %w", crustyerr.ErrStorage, service, err)
	}
	k.rings[service] = r
	return r, nil
}

// Set implements Store.
func (k *Keyring) Set(_ context.Context, service, account, secret string) error {
	if err := validate(service, account); err != nil {
		return err
	}
	r, err := k.ring(service)
	if err != nil {
		return err
	}
	err = r.Set(keyring.Item{
		Key:   account,
		Data:  []byte(secret),
		Label: service + " " + account,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to store credential %s/%s: %w", crustyerr.ErrStorage, service, account, err)
	}
	return nil
}

// Get implements Store.
func (k *Keyring) Get(_ context.Context, service, account string) (string, error) {
	if err := validate(service, account); err != nil {
		return "", err
	}
	r, err := k.ring(service)
	if err != nil {
		return "", err
	}
	item, err := r.Get(account)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to retrieve credential %s/%s: %w", crustyerr.ErrStorage, service, account, err)
	}
	return string(item.Data), nil
}

// Delete implements Store.
func (k *Keyring) Delete(_ context.Context, service, account string) error {
	if err := validate(service, account); err != nil {
		return err
	}
	r, err := k.ring(service)
	if err != nil {
		return err
	}
	err = r.Remove(account)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete credential %s/%s: %w", crustyerr.ErrStorage, service, account, err)
	}
	return nil
}
