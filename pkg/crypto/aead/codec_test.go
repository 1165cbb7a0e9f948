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
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := newTestKey(t)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"hello world", []byte("hello world")},
		{"binary", bytes.Repeat([]byte{0x00, 0xFF, 0x7F}, 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := Encrypt(tt.plaintext, key)
			require.NoError(t, err)
			assert.Len(t, envelope, len(tt.plaintext)+Overhead)

			length := binary.BigEndian.Uint32(envelope[NonceSize:HeaderSize])
			assert.Equal(t, uint32(len(tt.plaintext)+TagSize), length)

			plaintext, err := Decrypt(envelope, key)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, append([]byte{}, plaintext...))
		})
	}
}

func TestEncryptHelloWorldLayout(t *testing.T) {
	key := newTestKey(t)

	envelope, err := Encrypt([]byte("hello world"), key)
	require.NoError(t, err)
	assert.Len(t, envelope, 43)
	assert.Equal(t, []byte{0, 0, 0, 27}, envelope[12:16])
}

func TestEncryptFreshNonces(t *testing.T) {
	key := newTestKey(t)

	a, err := Encrypt([]byte("same"), key)
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), key)
	require.NoError(t, err)
	assert.NotEqual(t, a[:NonceSize], b[:NonceSize])
	assert.NotEqual(t, a, b)
}

func TestDecryptWrongKey(t *testing.T) {
	envelope, err := Encrypt([]byte("secret"), newTestKey(t))
	require.NoError(t, err)

	_, err = Decrypt(envelope, newTestKey(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, crustyerr.ErrAuthentication)
	assert.ErrorIs(t, err, crustyerr.ErrDecryption)
	assert.Equal(t, crustyerr.WrongKeyMessage, crustyerr.UserMessage(err))
}

func TestDecryptTampered(t *testing.T) {
	key := newTestKey(t)
	envelope, err := Encrypt([]byte("secret data"), key)
	require.NoError(t, err)

	for _, pos := range []int{0, HeaderSize, len(envelope) - 1} {
		tampered := append([]byte{}, envelope...)
		tampered[pos] ^= 0x01
		_, err := Decrypt(tampered, key)
		assert.ErrorIs(t, err, crustyerr.ErrAuthentication, "flip at %d", pos)
	}
}

func TestDecryptMalformed(t *testing.T) {
	key := newTestKey(t)
	envelope, err := Encrypt([]byte("secret data"), key)
	require.NoError(t, err)

	_, err = Decrypt(envelope[:HeaderSize-1], key)
	assert.ErrorIs(t, err, ErrEnvelopeTooShort)
	assert.ErrorIs(t, err, crustyerr.ErrDecryption)

	_, err = Decrypt(envelope[:len(envelope)-1], key)
	assert.ErrorIs(t, err, ErrEnvelopeTruncated)

	huge := append([]byte{}, envelope...)
	binary.BigEndian.PutUint32(huge[NonceSize:HeaderSize], 0xFFFFFFFF)
	_, err = Decrypt(huge, key)
	assert.ErrorIs(t, err, ErrEnvelopeTruncated)

	for _, length := range []uint32{0, 1, TagSize - 1} {
		short := append([]byte{}, envelope...)
		binary.BigEndian.PutUint32(short[NonceSize:HeaderSize], length)
		_, err = Decrypt(short, key)
		assert.ErrorIs(t, err, ErrEnvelopeMalformed, "length %d", length)
		assert.ErrorIs(t, err, crustyerr.ErrDecryption)
		assert.False(t, crustyerr.IsWrongKey(err), "length %d", length)
	}
}

func TestDecryptIgnoresTrailingBytes(t *testing.T) {
	key := newTestKey(t)
	envelope, err := Encrypt([]byte("secret data"), key)
	require.NoError(t, err)

	plaintext, err := Decrypt(append(envelope, 0xAA, 0xBB), key)
	require.NoError(t, err)
	assert.Equal(t, "secret data", string(plaintext))
}

func TestCodecNonceTracker(t *testing.T) {
	key := newTestKey(t)
	tracker := NewNonceTracker(true)

	// A reader that always yields the same nonce.
	fixed := bytes.NewReader(bytes.Repeat([]byte{0x42}, NonceSize*2))
	codec := NewCodec(WithRandom(fixed), WithNonceTracker(tracker))

	_, err := codec.Encrypt([]byte("one"), key)
	require.NoError(t, err)

	_, err = codec.Encrypt([]byte("two"), key)
	assert.ErrorIs(t, err, ErrNonceReuse)
	assert.ErrorIs(t, err, crustyerr.ErrEncryption)
}

func TestCodecRandomFailure(t *testing.T) {
	codec := NewCodec(WithRandom(strings.NewReader("")))
	_, err := codec.Encrypt([]byte("x"), newTestKey(t))
	assert.ErrorIs(t, err, crustyerr.ErrEncryption)
}

func TestDestroyedKey(t *testing.T) {
	key := newTestKey(t)
	envelope, err := Encrypt([]byte("x"), key)
	require.NoError(t, err)
	key.Destroy()

	_, err = Encrypt([]byte("x"), key)
	assert.ErrorIs(t, err, crustyerr.ErrKey)
	_, err = Decrypt(envelope, key)
	assert.ErrorIs(t, err, crustyerr.ErrKey)
}
