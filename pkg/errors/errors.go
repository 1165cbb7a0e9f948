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

package errors

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrIO indicates a filesystem failure.
	ErrIO = errors.New("io error")

	// ErrEncryption indicates encryption could not be performed.
	ErrEncryption = errors.New("encryption error")

	// ErrDecryption indicates decryption could not be performed.
	ErrDecryption = errors.New("decryption error")

	// ErrKey indicates malformed key material.
	ErrKey = errors.New("key error")

	// ErrSharing indicates a secret-sharing failure.
	ErrSharing = errors.New("sharing error")

	// ErrEncoding indicates malformed encoded data.
	ErrEncoding = errors.New("encoding error")

	// ErrStorage indicates a credential store or share storage failure.
	ErrStorage = errors.New("storage error")

	// ErrTransfer indicates misuse of a transfer package.
	ErrTransfer = errors.New("transfer error")
)

// Refinements of the kinds above. Each one matches its parent kind with errors.Is.
var (
	// ErrAuthentication indicates the AEAD tag did not verify: the key is wrong
	// or the data was modified.
	ErrAuthentication = fmt.Errorf("%w: authentication failed: the encryption key is incorrect or the data is corrupted", ErrDecryption)

	// ErrDestinationExists indicates an output file would be overwritten.
	ErrDestinationExists = fmt.Errorf("%w: destination file already exists", ErrIO)

	// ErrInsufficientShares indicates fewer shares than the threshold were supplied.
	ErrInsufficientShares = fmt.Errorf("%w: not enough shares", ErrSharing)

	// ErrChecksum indicates a share header failed its CRC check.
	ErrChecksum = fmt.Errorf("%w: invalid checksum, share may be corrupted", ErrEncoding)
)

// ErrNotImplemented is returned by backends that exist only as an interface
// variant. It is wrapped in ErrEncryption or ErrDecryption by the caller.
var ErrNotImplemented = errors.New("backend not implemented")

// WrongKeyMessage is shown to users when decryption fails authentication.
const WrongKeyMessage = "Wrong encryption key used. Please try a different key."

// IsWrongKey reports whether err is an authentication failure.
func IsWrongKey(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// UserMessage renders err for display. Authentication failures are replaced
// with the wrong-key hint; anything else is returned as-is.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsWrongKey(err) {
		return WrongKeyMessage
	}
	return err.Error()
}
