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

// Package share renders secret shares in forms people can store and move:
// checksummed Base32 text, mnemonic word phrases, QR codes and share files.
//
// Every rendering starts from the same binary layout
//
//	[version:1][index:1][threshold:1][crc16:2][payload]
//
// where index is the zero-based position of the share in its split and
// payload is the raw share. The CRC16 (polynomial 0x1021, initial value
// 0xFFFF) covers the three leading header bytes and, from version 2 on, the
// payload as well.
//
// Version 1 is the interchange format of the first CRUSTy releases, whose
// checksum covers the header only. It is accepted on input so those shares
// keep decoding; new shares are written as version 2 (GF(256)) or version 3
// (prime field).
//
// The text form is the padded RFC 4648 Base32 encoding of that layout with a
// hyphen after every five characters. The mnemonic form maps every byte of
// the hyphen-free text to one word of a fixed 256-word list.
package share

import (
	"encoding/binary"
	"fmt"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/secretsharing"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// Format versions.
const (
	// VersionLegacy checksums only the header bytes. Decode-only.
	VersionLegacy byte = 1

	// VersionGF256 carries a GF(256) share and checksums header and payload.
	VersionGF256 byte = 2

	// VersionPrime carries a prime-field share and checksums header and payload.
	VersionPrime byte = 3
)

// HeaderSize is the length of the binary header preceding the payload.
const HeaderSize = 5

// Share is a raw share together with the metadata carried in its header.
type Share struct {
	// Version is the header version the share was decoded from; zero for
	// headerless binary input. Encode derives the version from Scheme.
	Version byte

	// Index is the zero-based position of the share within its split.
	Index byte

	// Threshold is the number of shares needed to reconstruct.
	Threshold byte

	// Scheme is the field the share was produced in; zero when unknown.
	Scheme secretsharing.Scheme

	// Payload is the raw share.
	Payload []byte
}

// HasHeader reports whether Index and Threshold are meaningful.
func (s Share) HasHeader() bool {
	return s.Version != 0
}

func versionFor(scheme secretsharing.Scheme) (byte, error) {
	switch scheme {
	case 0, secretsharing.SchemeGF256:
		return VersionGF256, nil
	case secretsharing.SchemePrime:
		return VersionPrime, nil
	default:
		return 0, fmt.Errorf("%w: unsupported scheme %s", crustyerr.ErrEncoding, scheme)
	}
}

// MarshalBinary returns the header followed by the payload.
func (s Share) MarshalBinary() ([]byte, error) {
	version, err := versionFor(s.Scheme)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, HeaderSize+len(s.Payload))
	buf[0] = version
	buf[1] = s.Index
	buf[2] = s.Threshold
	copy(buf[HeaderSize:], s.Payload)
	binary.BigEndian.PutUint16(buf[3:5], checksum(buf))
	return buf, nil
}

// UnmarshalShare parses the binary layout produced by MarshalBinary, or a
// version 1 header.
func UnmarshalShare(buf []byte) (Share, error) {
	if len(buf) < HeaderSize {
		return Share{}, fmt.Errorf("%w: share text too short", crustyerr.ErrEncoding)
	}

	var scheme secretsharing.Scheme
	switch buf[0] {
	case VersionLegacy, VersionGF256:
		scheme = secretsharing.SchemeGF256
	case VersionPrime:
		scheme = secretsharing.SchemePrime
	default:
		return Share{}, fmt.Errorf("%w: unsupported share version: %d", crustyerr.ErrEncoding, buf[0])
	}

	if binary.BigEndian.Uint16(buf[3:5]) != checksum(buf) {
		return Share{}, crustyerr.ErrChecksum
	}

	payload := make([]byte, len(buf)-HeaderSize)
	copy(payload, buf[HeaderSize:])
	return Share{
		Version:   buf[0],
		Index:     buf[1],
		Threshold: buf[2],
		Scheme:    scheme,
		Payload:   payload,
	}, nil
}

// checksum computes the CRC stored in buf[3:5] for the version in buf[0].
func checksum(buf []byte) uint16 {
	crc := CRC16(buf[:3])
	if buf[0] != VersionLegacy {
		crc = updateCRC16(crc, buf[HeaderSize:])
	}
	return crc
}
