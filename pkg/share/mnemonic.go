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
	"fmt"
	"strings"
	"unicode/utf8"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// ToMnemonic converts share text to a phrase of space-separated words, one
// per character of the text with hyphens and whitespace removed.
func ToMnemonic(text string) string {
	cleaned := clean(text)
	words := make([]string, len(cleaned))
	for i := 0; i < len(cleaned); i++ {
		words[i] = wordlist[cleaned[i]]
	}
	return strings.Join(words, " ")
}

// FromMnemonic converts a phrase produced by ToMnemonic back to share text
// (without hyphens). Words are matched case-insensitively.
func FromMnemonic(phrase string) (string, error) {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return "", fmt.Errorf("%w: empty mnemonic", crustyerr.ErrEncoding)
	}

	buf := make([]byte, len(words))
	for i, w := range words {
		b, ok := wordIndex[strings.ToLower(w)]
		if !ok {
			return "", fmt.Errorf("%w: unknown word in mnemonic: %s", crustyerr.ErrEncoding, w)
		}
		buf[i] = b
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: invalid UTF-8 sequence in mnemonic", crustyerr.ErrEncoding)
	}
	return string(buf), nil
}

// EncodeMnemonic renders s directly as a mnemonic phrase.
func EncodeMnemonic(s Share) (string, error) {
	text, err := Encode(s)
	if err != nil {
		return "", err
	}
	return ToMnemonic(text), nil
}

// DecodeMnemonic parses a phrase produced by EncodeMnemonic.
func DecodeMnemonic(phrase string) (Share, error) {
	text, err := FromMnemonic(phrase)
	if err != nil {
		return Share{}, err
	}
	return Decode(text)
}
