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

// Package aead implements the AES-256-GCM envelopes used for file contents.
//
// A plain envelope is
//
//	nonce(12) || length(4, big-endian) || ciphertext+tag
//
// and a recipient envelope, sealed under a key derived from the master key
// and the recipient email, is
//
//	nonce(12) || email_length(2, big-endian) || email || ciphertext+tag
//
// Every encryption draws a fresh 96-bit nonce from crypto/rand. Neither
// envelope uses associated data.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

const (
	// NonceSize is the GCM nonce length.
	NonceSize = 12

	// TagSize is the GCM authentication tag length.
	TagSize = 16

	// LengthSize is the length of the big-endian ciphertext length field.
	LengthSize = 4

	// HeaderSize is the fixed prefix of a plain envelope.
	HeaderSize = NonceSize + LengthSize

	// Overhead is the number of bytes a plain envelope adds to its plaintext.
	Overhead = HeaderSize + TagSize
)

// Codec seals and opens envelopes. A Codec is safe for concurrent use.
type Codec struct {
	random  io.Reader
	tracker *NonceTracker
}

// Option configures a Codec.
type Option func(*Codec)

// WithRandom replaces crypto/rand as the nonce source.
func WithRandom(r io.Reader) Option {
	return func(c *Codec) {
		c.random = r
	}
}

// WithNonceTracker makes the codec refuse any nonce it has already used
// under the same key.
func WithNonceTracker(t *NonceTracker) Option {
	return func(c *Codec) {
		c.tracker = t
	}
}

// NewCodec creates a codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{random: rand.Reader}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCodec = NewCodec()

// Encrypt seals plaintext into a plain envelope using the default codec.
func Encrypt(plaintext []byte, key *symkey.Key) ([]byte, error) {
	return defaultCodec.Encrypt(plaintext, key)
}

// Decrypt opens a plain envelope using the default codec.
func Decrypt(envelope []byte, key *symkey.Key) ([]byte, error) {
	return defaultCodec.Decrypt(envelope, key)
}

// Encrypt seals plaintext into a plain envelope.
func (c *Codec) Encrypt(plaintext []byte, key *symkey.Key) ([]byte, error) {
	if uint64(len(plaintext)) > math.MaxUint32-TagSize {
		return nil, fmt.Errorf("%w: plaintext too large for envelope", crustyerr.ErrEncryption)
	}

	gcm, err := newGCM(key, crustyerr.ErrEncryption)
	if err != nil {
		return nil, err
	}

	nonce, err := c.nonce(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, HeaderSize, Overhead+len(plaintext))
	copy(out, nonce)
	binary.BigEndian.PutUint32(out[NonceSize:HeaderSize], uint32(len(plaintext)+TagSize))
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens a plain envelope. Bytes past the declared ciphertext length
// are ignored. An authentication failure matches crustyerr.ErrAuthentication.
func (c *Codec) Decrypt(envelope []byte, key *symkey.Key) ([]byte, error) {
	if len(envelope) < HeaderSize {
		return nil, ErrEnvelopeTooShort
	}

	length := binary.BigEndian.Uint32(envelope[NonceSize:HeaderSize])
	if length < TagSize {
		return nil, fmt.Errorf("%w: declared length %d is below the %d byte tag", ErrEnvelopeMalformed, length, TagSize)
	}
	if uint64(len(envelope)-HeaderSize) < uint64(length) {
		return nil, fmt.Errorf("%w: declared %d bytes, have %d", ErrEnvelopeTruncated, length, len(envelope)-HeaderSize)
	}

	gcm, err := newGCM(key, crustyerr.ErrDecryption)
	if err != nil {
		return nil, err
	}

	ct := envelope[HeaderSize : HeaderSize+int(length)]
	plaintext, err := gcm.Open(nil, envelope[:NonceSize], ct, nil)
	if err != nil {
		return nil, crustyerr.ErrAuthentication
	}
	return plaintext, nil
}

func (c *Codec) nonce(key *symkey.Key) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return nil, fmt.Errorf("%w: failed to generate nonce: %w", crustyerr.ErrEncryption, err)
	}
	if c.tracker != nil {
		if err := c.tracker.CheckAndRecordNonce(key, nonce); err != nil {
			return nil, err
		}
	}
	return nonce, nil
}

func newGCM(key *symkey.Key, kind error) (cipher.AEAD, error) {
	raw := key.Bytes()
	if raw == nil {
		return nil, fmt.Errorf("%w: %w: key has been destroyed", kind, crustyerr.ErrKey)
	}
	defer symkey.Wipe(raw)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %w", kind, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCM: %w", kind, err)
	}
	return gcm, nil
}
