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
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// Format selects how a share is written to a file.
type Format int

const (
	// FormatBinary is the base64 encoding of the raw share, without header.
	FormatBinary Format = iota

	// FormatText is the hyphen-grouped Base32 text.
	FormatText

	// FormatMnemonic is the word phrase.
	FormatMnemonic
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatText:
		return "text"
	case FormatMnemonic:
		return "mnemonic"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "binary", "base64":
		return FormatBinary, nil
	case "text", "":
		return FormatText, nil
	case "mnemonic", "words":
		return FormatMnemonic, nil
	default:
		return 0, fmt.Errorf("%w: unknown share format %q", crustyerr.ErrEncoding, name)
	}
}

// EncodeFormat renders s in format f.
func EncodeFormat(s Share, f Format) (string, error) {
	switch f {
	case FormatBinary:
		return base64.StdEncoding.EncodeToString(s.Payload), nil
	case FormatText:
		return Encode(s)
	case FormatMnemonic:
		return EncodeMnemonic(s)
	default:
		return "", fmt.Errorf("%w: unknown share format %s", crustyerr.ErrEncoding, f)
	}
}

// DetectAndDecode parses content in whichever format it was written. More
// than one whitespace-separated token is read as a mnemonic, hyphenated text
// as Base32 share text and anything else as base64 binary.
func DetectAndDecode(content string) (Share, Format, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Share{}, 0, fmt.Errorf("%w: share is empty", crustyerr.ErrEncoding)
	}

	if len(strings.Fields(content)) > 1 {
		s, err := DecodeMnemonic(content)
		return s, FormatMnemonic, err
	}

	if strings.Contains(content, "-") {
		s, err := Decode(content)
		return s, FormatText, err
	}

	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		// Short unhyphenated text is still worth a try.
		if s, terr := Decode(content); terr == nil {
			return s, FormatText, nil
		}
		return Share{}, FormatBinary, fmt.Errorf("%w: invalid share data: %w", crustyerr.ErrEncoding, err)
	}
	return Share{Payload: raw}, FormatBinary, nil
}

// SaveFile writes s to path in format f with mode 0600.
func SaveFile(path string, s Share, f Format) error {
	content, err := EncodeFormat(s, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("%w: failed to write share file: %w", crustyerr.ErrIO, err)
	}
	return nil
}

// LoadFile reads a share file written in any Format.
func LoadFile(path string) (Share, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Share{}, fmt.Errorf("%w: failed to read share file: %w", crustyerr.ErrIO, err)
	}
	s, _, err := DetectAndDecode(string(data))
	return s, err
}
