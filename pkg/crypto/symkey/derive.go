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

package symkey

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// RecipientInfo is the HKDF context label for recipient keys. Changing it
// breaks every existing recipient envelope.
const RecipientInfo = "crusty-recipient-key-v1"

// NormalizeEmail trims surrounding whitespace and lowercases email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeriveForRecipient derives the per-recipient key for email from master.
//
// The derivation is HKDF-SHA256 with the master key as input keying material,
// SHA-256 of the normalized email as salt and RecipientInfo as info. Emails
// that differ only in case or surrounding whitespace derive the same key.
func DeriveForRecipient(master *Key, email string) (*Key, error) {
	ikm := master.Bytes()
	if ikm == nil {
		return nil, fmt.Errorf("%w: master key has been destroyed", crustyerr.ErrKey)
	}
	defer Wipe(ikm)

	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, fmt.Errorf("%w: recipient email is empty", crustyerr.ErrEncoding)
	}
	salt := sha256.Sum256([]byte(normalized))

	kdf := hkdf.New(sha256.New, ikm, salt[:], []byte(RecipientInfo))
	k := newKey()
	if _, err := io.ReadFull(kdf, k.b[:]); err != nil {
		k.Destroy()
		return nil, fmt.Errorf("%w: failed to derive recipient key: %w", crustyerr.ErrKey, err)
	}
	return k, nil
}
