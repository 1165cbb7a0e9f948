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

// Package symkey holds the 256-bit symmetric keys used by the file codec.
//
// A Key is created from crypto/rand, decoded from its base64 text form, or
// reconstructed from shares. The backing array is locked into memory where
// the platform allows and is wiped by Destroy or, failing that, when the key is
// garbage collected.
package symkey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// Size is the length of a key in bytes.
const Size = 32

// Key is a 32-byte AES-256 key. The zero value is not usable; obtain keys
// from Generate, New, FromBase64 or LoadFromFile.
//
// Destroy must not be called concurrently with other methods.
type Key struct {
	b         *[Size]byte
	mem       *lockedMem
	destroyed bool
}

// lockedMem owns the locked key bytes. It is released exactly once, by
// Destroy or by the cleanup of an unreachable key.
type lockedMem struct {
	b        *[Size]byte
	released atomic.Bool
}

func (m *lockedMem) release() {
	if m.released.CompareAndSwap(false, true) {
		Wipe(m.b[:])
		unlockMemory(m.b[:])
	}
}

// Generate creates a key from the operating system CSPRNG.
func Generate() (*Key, error) {
	k := newKey()
	if _, err := rand.Read(k.b[:]); err != nil {
		k.Destroy()
		return nil, fmt.Errorf("%w: failed to generate random key: %w", crustyerr.ErrKey, err)
	}
	return k, nil
}

// New copies raw into a new key. raw must be exactly Size bytes.
func New(raw []byte) (*Key, error) {
	if len(raw) != Size {
		return nil, fmt.Errorf("%w: invalid key length: expected %d bytes, got %d", crustyerr.ErrKey, Size, len(raw))
	}
	k := newKey()
	copy(k.b[:], raw)
	return k, nil
}

// FromBase64 decodes the standard padded base64 text form of a key.
// Surrounding whitespace is ignored.
func FromBase64(s string) (*Key, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 key: %w", crustyerr.ErrKey, err)
	}
	defer Wipe(raw)
	return New(raw)
}

// LoadFromFile reads a key written by SaveToFile.
func LoadFromFile(path string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read key file: %w", crustyerr.ErrIO, err)
	}
	defer Wipe(data)
	return FromBase64(string(data))
}

func newKey() *Key {
	mem := &lockedMem{b: new([Size]byte)}
	lockMemory(mem.b[:])
	k := &Key{b: mem.b, mem: mem}
	runtime.AddCleanup(k, (*lockedMem).release, mem)
	return k
}

// Base64 returns the standard padded base64 encoding of the key (44 characters).
func (k *Key) Base64() string {
	return base64.StdEncoding.EncodeToString(k.b[:])
}

// SaveToFile writes the base64 text form of the key to path with mode 0600.
// The file contains exactly the base64 string with no trailing newline.
func (k *Key) SaveToFile(path string) error {
	if k.destroyed {
		return fmt.Errorf("%w: key has been destroyed", crustyerr.ErrKey)
	}
	if err := os.WriteFile(path, []byte(k.Base64()), 0600); err != nil {
		return fmt.Errorf("%w: failed to write key file: %w", crustyerr.ErrIO, err)
	}
	return nil
}

// Bytes returns a copy of the raw key, or nil once the key is destroyed.
// Callers should Wipe the copy when finished with it.
func (k *Key) Bytes() []byte {
	if k == nil || k.destroyed {
		return nil
	}
	out := make([]byte, Size)
	copy(out, k.b[:])
	return out
}

// Equal reports whether both keys hold the same bytes, in constant time.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.b[:], other.b[:]) == 1
}

// Clone returns an independent copy of the key.
func (k *Key) Clone() *Key {
	c := newKey()
	if k.destroyed {
		c.Destroy()
		return c
	}
	copy(c.b[:], k.b[:])
	return c
}

// Destroyed reports whether Destroy has been called.
func (k *Key) Destroyed() bool {
	return k.destroyed
}

// Destroy wipes the key material. The key is unusable afterwards.
func (k *Key) Destroy() {
	if k == nil || k.destroyed {
		return
	}
	k.mem.release()
	k.destroyed = true
}

// String never reveals key material.
func (k *Key) String() string {
	return "symkey.Key(REDACTED)"
}

// Wipe zeroes b.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
