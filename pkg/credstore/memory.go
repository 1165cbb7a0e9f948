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
	"strings"

	"github.com/jeremyhahn/go-crusty/pkg/storage"
)

// Memory is a Store held in process memory.
type Memory struct {
	backend *storage.MemoryBackend
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{backend: storage.NewMemory()}
}

func memoryKey(service, account string) string {
	return service + "/" + account
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, service, account, secret string) error {
	if err := validate(service, account); err != nil {
		return err
	}
	return m.backend.Put(memoryKey(service, account), []byte(secret), nil)
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, service, account string) (string, error) {
	if err := validate(service, account); err != nil {
		return "", err
	}
	v, err := m.backend.Get(memoryKey(service, account))
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, service, account string) error {
	if err := validate(service, account); err != nil {
		return err
	}
	err := m.backend.Delete(memoryKey(service, account))
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Accounts lists the accounts stored for service.
func (m *Memory) Accounts(service string) ([]string, error) {
	keys, err := m.backend.List(service + "/")
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, service+"/")
	}
	return keys, nil
}

// Close wipes every stored secret.
func (m *Memory) Close() error {
	return m.backend.Close()
}
