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

package oplog

import (
	"context"
	"sync"
)

// Memory keeps entries in process memory in the order they were recorded.
type Memory struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemory creates an empty in-memory observer.
func NewMemory() *Memory {
	return &Memory{entries: make([]*Entry, 0, 64)}
}

// Record implements Observer.
func (m *Memory) Record(_ context.Context, entry *Entry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	e := *entry
	m.mu.Lock()
	m.entries = append(m.entries, &e)
	m.mu.Unlock()
	return nil
}

// Entries returns a copy of every recorded entry.
func (m *Memory) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of recorded entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Reset drops every entry.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.entries = m.entries[:0]
	m.mu.Unlock()
}
