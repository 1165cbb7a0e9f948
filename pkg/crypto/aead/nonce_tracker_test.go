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
	"crypto/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
)

func newTestKey(t *testing.T) *symkey.Key {
	t.Helper()
	k, err := symkey.Generate()
	require.NoError(t, err)
	return k
}

func randomNonce(t *testing.T) []byte {
	t.Helper()
	nonce := make([]byte, NonceSize)
	_, err := rand.Read(nonce)
	require.NoError(t, err)
	return nonce
}

func TestNewNonceTracker(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
	}{
		{name: "enabled tracker", enabled: true},
		{name: "disabled tracker", enabled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewNonceTracker(tt.enabled)
			require.NotNil(t, tracker)
			assert.Equal(t, tt.enabled, tracker.IsEnabled())
			assert.NotNil(t, tracker.nonces)
			assert.Equal(t, 0, tracker.Count())
		})
	}
}

func TestCheckAndRecordNonce_Enabled(t *testing.T) {
	tracker := NewNonceTracker(true)
	key := newTestKey(t)
	nonce := randomNonce(t)

	require.NoError(t, tracker.CheckAndRecordNonce(key, nonce))
	assert.ErrorIs(t, tracker.CheckAndRecordNonce(key, nonce), ErrNonceReuse)
	assert.True(t, tracker.Contains(key, nonce))

	require.NoError(t, tracker.CheckAndRecordNonce(key, randomNonce(t)))
	assert.Equal(t, 2, tracker.Count())
}

func TestCheckAndRecordNonce_PerKey(t *testing.T) {
	tracker := NewNonceTracker(true)
	nonce := randomNonce(t)

	require.NoError(t, tracker.CheckAndRecordNonce(newTestKey(t), nonce))
	require.NoError(t, tracker.CheckAndRecordNonce(newTestKey(t), nonce),
		"the same nonce under a different key is not a reuse")
}

func TestCheckAndRecordNonce_Disabled(t *testing.T) {
	tracker := NewNonceTracker(false)
	key := newTestKey(t)
	nonce := randomNonce(t)

	require.NoError(t, tracker.CheckAndRecordNonce(key, nonce))
	require.NoError(t, tracker.CheckAndRecordNonce(key, nonce))
	assert.False(t, tracker.Contains(key, nonce))
	assert.Equal(t, 0, tracker.Count())
}

func TestNonceTrackerClear(t *testing.T) {
	tracker := NewNonceTracker(true)
	key := newTestKey(t)
	nonce := randomNonce(t)

	require.NoError(t, tracker.CheckAndRecordNonce(key, nonce))
	tracker.Clear()
	assert.Equal(t, 0, tracker.Count())
	require.NoError(t, tracker.CheckAndRecordNonce(key, nonce))
}

func TestNonceTrackerConcurrent(t *testing.T) {
	tracker := NewNonceTracker(true)
	key := newTestKey(t)

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				nonce := make([]byte, NonceSize)
				_, _ = rand.Read(nonce)
				_ = tracker.CheckAndRecordNonce(key, nonce)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, tracker.Count())
}
