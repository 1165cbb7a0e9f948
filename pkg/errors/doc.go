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

// Package errors provides the error kinds shared by every go-crusty package.
//
// Each kind is a sentinel value so callers can classify failures with
// errors.Is instead of string matching. Refinements such as ErrAuthentication
// wrap their parent kind, so errors.Is(err, ErrDecryption) also holds for an
// authentication failure.
//
// # Kinds
//
//   - ErrIO: filesystem read, write or existence failures
//   - ErrEncryption, ErrDecryption: AEAD failures and malformed envelopes
//   - ErrKey: malformed key material
//   - ErrSharing: invalid split parameters, too few or inconsistent shares
//   - ErrEncoding: malformed share text, mnemonic or envelope fields
//   - ErrStorage: credential store and share directory failures
//   - ErrTransfer: transfer package misuse
//
// # Usage
//
//	if _, err := aead.Decrypt(envelope, key); errors.Is(err, crustyerr.ErrAuthentication) {
//	    fmt.Println(crustyerr.UserMessage(err))
//	}
package errors
