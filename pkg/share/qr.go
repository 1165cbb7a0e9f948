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

	"github.com/skip2/go-qrcode"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// DefaultQRSize is the PNG edge length in pixels used when none is given.
const DefaultQRSize = 256

// QRContent is the string a share QR code encodes: the standard base64
// encoding of the raw share.
func QRContent(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// QRCodePNG renders the share QR code as a PNG of size x size pixels.
func QRCodePNG(raw []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(QRContent(raw), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate QR code: %w", crustyerr.ErrEncoding, err)
	}
	return png, nil
}

// QRCodeTerminal renders the share QR code with Unicode block characters for
// display in a terminal.
func QRCodeTerminal(raw []byte) (string, error) {
	q, err := qrcode.New(QRContent(raw), qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate QR code: %w", crustyerr.ErrEncoding, err)
	}
	return q.ToSmallString(false), nil
}

// WriteQRCodeFile writes the share QR code as a PNG file.
func WriteQRCodeFile(raw []byte, size int, path string) error {
	if size <= 0 {
		size = DefaultQRSize
	}
	if err := qrcode.WriteFile(QRContent(raw), qrcode.Medium, size, path); err != nil {
		return fmt.Errorf("%w: failed to write QR code: %w", crustyerr.ErrIO, err)
	}
	return nil
}
