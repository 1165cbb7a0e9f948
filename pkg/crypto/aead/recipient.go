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
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

const (
	// EmailLengthSize is the length of the big-endian email length field.
	EmailLengthSize = 2

	// MaxEmailLength is the longest email a recipient envelope can carry.
	MaxEmailLength = math.MaxUint16
)

// EncryptForRecipient seals plaintext for email using the default codec.
func EncryptForRecipient(plaintext []byte, master *symkey.Key, email string) ([]byte, error) {
	return defaultCodec.EncryptForRecipient(plaintext, master, email)
}

// DecryptWithRecipient opens a recipient envelope using the default codec.
func DecryptWithRecipient(envelope []byte, master *symkey.Key) (string, []byte, error) {
	return defaultCodec.DecryptWithRecipient(envelope, master)
}

// EncryptForRecipient seals plaintext under the key derived from master and
// email. The email is embedded exactly as given.
func (c *Codec) EncryptForRecipient(plaintext []byte, master *symkey.Key, email string) ([]byte, error) {
	if len(email) > MaxEmailLength {
		return nil, fmt.Errorf("%w: recipient email longer than %d bytes", crustyerr.ErrEncoding, MaxEmailLength)
	}
	if !utf8.ValidString(email) {
		return nil, fmt.Errorf("%w: recipient email is not valid UTF-8", crustyerr.ErrEncoding)
	}

	rk, err := symkey.DeriveForRecipient(master, email)
	if err != nil {
		return nil, err
	}
	defer rk.Destroy()

	gcm, err := newGCM(rk, crustyerr.ErrEncryption)
	if err != nil {
		return nil, err
	}
	nonce, err := c.nonce(rk)
	if err != nil {
		return nil, err
	}

	prefix := NonceSize + EmailLengthSize + len(email)
	out := make([]byte, prefix, prefix+len(plaintext)+TagSize)
	copy(out, nonce)
	binary.BigEndian.PutUint16(out[NonceSize:], uint16(len(email)))
	copy(out[NonceSize+EmailLengthSize:], email)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// DecryptWithRecipient opens a recipient envelope and returns the embedded
// email along with the plaintext.
func (c *Codec) DecryptWithRecipient(envelope []byte, master *symkey.Key) (string, []byte, error) {
	if len(envelope) < NonceSize+EmailLengthSize {
		return "", nil, ErrEnvelopeTooShort
	}

	emailLen := int(binary.BigEndian.Uint16(envelope[NonceSize:]))
	rest := envelope[NonceSize+EmailLengthSize:]
	if len(rest) < emailLen+TagSize {
		return "", nil, fmt.Errorf("%w: email length %d exceeds envelope", ErrEnvelopeTruncated, emailLen)
	}

	emailBytes := rest[:emailLen]
	if !utf8.Valid(emailBytes) {
		return "", nil, fmt.Errorf("%w: %w: embedded email is not valid UTF-8", crustyerr.ErrDecryption, crustyerr.ErrEncoding)
	}
	email := string(emailBytes)

	rk, err := symkey.DeriveForRecipient(master, email)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", crustyerr.ErrDecryption, err)
	}
	defer rk.Destroy()

	gcm, err := newGCM(rk, crustyerr.ErrDecryption)
	if err != nil {
		return "", nil, err
	}

	plaintext, err := gcm.Open(nil, envelope[:NonceSize], rest[emailLen:], nil)
	if err != nil {
		return "", nil, crustyerr.ErrAuthentication
	}
	return email, plaintext, nil
}
