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

package aead

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
)

// fingerprintLabel separates tracker fingerprints from any other use of the key.
const fingerprintLabel = "crusty-nonce-tracker"

// NonceTracker records every nonce a codec has used, per key, and rejects a
// repeat, which can only happen when the random source is broken.
//
// Keys are identified by a truncated HMAC fingerprint, so the tracker never
// retains key material. Memory grows with each encryption; Clear after a key
// is retired.
//
// Example usage:
//
//	tracker := aead.NewNonceTracker(true)
//	codec := aead.NewCodec(aead.WithNonceTracker(tracker))
type NonceTracker struct {
	enabled bool
	nonces  map[string]struct{} // fingerprint || nonce, hex encoded
	mu      sync.RWMutex
}

// NewNonceTracker creates a tracker. A disabled tracker accepts every nonce.
func NewNonceTracker(enabled bool) *NonceTracker {
	return &NonceTracker{
		enabled: enabled,
		nonces:  make(map[string]struct{}),
	}
}

// CheckAndRecordNonce atomically checks whether nonce was already used with
// key and records it. Returns ErrNonceReuse on a repeat.
func (nt *NonceTracker) CheckAndRecordNonce(key *symkey.Key, nonce []byte) error {
	if !nt.enabled {
		return nil
	}

	id := trackerID(key, nonce)

	nt.mu.Lock()
	defer nt.mu.Unlock()

	if _, exists := nt.nonces[id]; exists {
		return ErrNonceReuse
	}

	nt.nonces[id] = struct{}{}
	return nil
}

// Contains reports whether nonce was recorded for key, without recording it.
func (nt *NonceTracker) Contains(key *symkey.Key, nonce []byte) bool {
	if !nt.enabled {
		return false
	}

	id := trackerID(key, nonce)

	nt.mu.RLock()
	defer nt.mu.RUnlock()

	_, exists := nt.nonces[id]
	return exists
}

// Count returns the number of tracked nonces across all keys.
func (nt *NonceTracker) Count() int {
	if !nt.enabled {
		return 0
	}

	nt.mu.RLock()
	defer nt.mu.RUnlock()

	return len(nt.nonces)
}

// Clear forgets every tracked nonce.
func (nt *NonceTracker) Clear() {
	if !nt.enabled {
		return
	}

	nt.mu.Lock()
	defer nt.mu.Unlock()

	nt.nonces = make(map[string]struct{})
}

// IsEnabled reports whether tracking is active.
func (nt *NonceTracker) IsEnabled() bool {
	return nt.enabled
}

func trackerID(key *symkey.Key, nonce []byte) string {
	raw := key.Bytes()
	defer symkey.Wipe(raw)

	mac := hmac.New(sha256.New, raw)
	mac.Write([]byte(fingerprintLabel))
	fp := mac.Sum(nil)[:8]
	return hex.EncodeToString(fp) + hex.EncodeToString(nonce)
}
