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
	"fmt"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

var (
	// ErrNonceReuse is returned when a nonce is drawn twice under the same key.
	// The encryption is refused; the envelope is never produced.
	ErrNonceReuse = fmt.Errorf("%w: aead: nonce reuse detected, encryption rejected", crustyerr.ErrEncryption)

	// ErrEnvelopeTooShort is returned for buffers shorter than the fixed header.
	ErrEnvelopeTooShort = fmt.Errorf("%w: envelope too short", crustyerr.ErrDecryption)

	// ErrEnvelopeTruncated is returned when the declared length exceeds the buffer.
	ErrEnvelopeTruncated = fmt.Errorf("%w: envelope truncated", crustyerr.ErrDecryption)

	// ErrEnvelopeMalformed is returned when the declared length cannot hold a tag.
	ErrEnvelopeMalformed = fmt.Errorf("%w: envelope malformed", crustyerr.ErrDecryption)
)
