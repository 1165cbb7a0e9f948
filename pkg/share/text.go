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

package share

import (
	"encoding/base32"
	"fmt"
	"strings"
	"unicode"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// GroupSize is the number of Base32 characters between hyphens.
const GroupSize = 5

// Encode renders s as hyphen-grouped Base32 text.
func Encode(s Share) (string, error) {
	buf, err := s.MarshalBinary()
	if err != nil {
		return "", err
	}
	return group(base32.StdEncoding.EncodeToString(buf)), nil
}

// Decode parses share text. Hyphens and whitespace are ignored and letters
// are accepted in either case.
func Decode(text string) (Share, error) {
	cleaned := clean(text)
	buf, err := base32.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return Share{}, fmt.Errorf("%w: invalid Base32 encoding: %w", crustyerr.ErrEncoding, err)
	}
	// Reject non-zero trailing bits, which the decoder silently drops.
	if base32.StdEncoding.EncodeToString(buf) != cleaned {
		return Share{}, fmt.Errorf("%w: invalid Base32 encoding: non-canonical text", crustyerr.ErrEncoding)
	}
	return UnmarshalShare(buf)
}

func group(encoded string) string {
	var b strings.Builder
	b.Grow(len(encoded) + len(encoded)/GroupSize)
	for i, c := range encoded {
		if i > 0 && i%GroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// clean strips hyphens and whitespace and uppercases the rest.
func clean(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, text)
}
