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

// Package splitkey splits encryption keys into Shamir shares and puts them
// back together. A SplitKey is the dealer side of a split, a TransferPackage
// bundles the shares of a key meant for someone else, and a Manager keeps the
// shares of the user's own keys in a credential store and a share directory.
//
// The shared secret is the base64 text of the key, so reconstruction checks
// that the recovered bytes decode back to a 32-byte key.
package splitkey

import (
	"fmt"
	"unicode/utf8"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/secretsharing"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/share"
)

// Purpose records what a split is for.
type Purpose int

const (
	// PurposeStandard splits a key the user keeps for themselves.
	PurposeStandard Purpose = iota

	// PurposeTransfer splits a key that is handed to someone else.
	PurposeTransfer
)

func (p Purpose) String() string {
	switch p {
	case PurposeStandard:
		return "standard"
	case PurposeTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("Purpose(%d)", int(p))
	}
}

// Option configures Split and Reconstruct.
type Option func(*options)

type options struct {
	scheme secretsharing.Scheme
}

// WithScheme selects the sharing scheme. The default is GF(256).
func WithScheme(scheme secretsharing.Scheme) Option {
	return func(o *options) {
		o.scheme = scheme
	}
}

func newOptions(opts []Option) *options {
	o := &options{scheme: secretsharing.SchemeGF256}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SplitKey holds the shares of a key together with the key itself.
type SplitKey struct {
	threshold int
	scheme    secretsharing.Scheme
	purpose   Purpose
	shares    []secretsharing.Share
	key       *symkey.Key
}

// Split divides key into total shares, any threshold of which reconstruct it.
func Split(key *symkey.Key, threshold, total int, purpose Purpose, opts ...Option) (*SplitKey, error) {
	if key == nil || key.Destroyed() {
		return nil, fmt.Errorf("%w: key is not available", crustyerr.ErrKey)
	}
	o := newOptions(opts)

	shamir, err := secretsharing.NewShamir(&secretsharing.ShareConfig{
		Threshold:   threshold,
		TotalShares: total,
		Scheme:      o.scheme,
	})
	if err != nil {
		return nil, err
	}

	secret := []byte(key.Base64())
	defer symkey.Wipe(secret)

	shares, err := shamir.Split(secret)
	if err != nil {
		return nil, err
	}

	return &SplitKey{
		threshold: threshold,
		scheme:    shamir.Scheme(),
		purpose:   purpose,
		shares:    shares,
		key:       key.Clone(),
	}, nil
}

// Threshold returns the number of shares needed to reconstruct the key.
func (s *SplitKey) Threshold() int {
	return s.threshold
}

// Total returns the number of shares produced.
func (s *SplitKey) Total() int {
	return len(s.shares)
}

// Purpose returns what the split is for.
func (s *SplitKey) Purpose() Purpose {
	return s.purpose
}

// Scheme returns the sharing scheme used.
func (s *SplitKey) Scheme() secretsharing.Scheme {
	return s.scheme
}

// Key returns the key that was split.
func (s *SplitKey) Key() *symkey.Key {
	return s.key
}

// Share returns the raw bytes of share i (zero-based).
func (s *SplitKey) Share(i int) ([]byte, error) {
	if i < 0 || i >= len(s.shares) {
		return nil, fmt.Errorf("%w: share index %d out of bounds", crustyerr.ErrSharing, i)
	}
	return s.shares[i].Bytes(), nil
}

// Shares returns the raw bytes of every share in order.
func (s *SplitKey) Shares() [][]byte {
	out := make([][]byte, len(s.shares))
	for i, sh := range s.shares {
		out[i] = sh.Bytes()
	}
	return out
}

// encoded wraps share i with its header metadata.
func (s *SplitKey) encoded(i int) (share.Share, error) {
	if i < 0 || i >= len(s.shares) {
		return share.Share{}, fmt.Errorf("%w: share index %d out of bounds", crustyerr.ErrEncoding, i)
	}
	return share.Share{
		Index:     byte(i),
		Threshold: byte(s.threshold),
		Scheme:    s.scheme,
		Payload:   s.shares[i].Bytes(),
	}, nil
}

// ShareText renders share i as checksummed Base32 text.
func (s *SplitKey) ShareText(i int) (string, error) {
	sh, err := s.encoded(i)
	if err != nil {
		return "", err
	}
	return share.Encode(sh)
}

// ShareMnemonic renders share i as a mnemonic phrase.
func (s *SplitKey) ShareMnemonic(i int) (string, error) {
	sh, err := s.encoded(i)
	if err != nil {
		return "", err
	}
	return share.EncodeMnemonic(sh)
}

// ShareFormatted renders share i in format f.
func (s *SplitKey) ShareFormatted(i int, f share.Format) (string, error) {
	sh, err := s.encoded(i)
	if err != nil {
		return "", err
	}
	return share.EncodeFormat(sh, f)
}

// ShareQRCode renders share i as a PNG QR code of size x size pixels.
func (s *SplitKey) ShareQRCode(i, size int) ([]byte, error) {
	raw, err := s.Share(i)
	if err != nil {
		return nil, err
	}
	return share.QRCodePNG(raw, size)
}

// Destroy wipes the key held by the split.
func (s *SplitKey) Destroy() {
	s.key.Destroy()
}

// Reconstruct recovers a key from at least threshold raw shares.
func Reconstruct(shares [][]byte, threshold int, opts ...Option) (*symkey.Key, error) {
	o := newOptions(opts)
	if len(shares) < threshold {
		return nil, fmt.Errorf("%w: got %d, need at least %d", crustyerr.ErrInsufficientShares, len(shares), threshold)
	}

	parsed := make([]secretsharing.Share, len(shares))
	for i, raw := range shares {
		sh, err := secretsharing.ParseShare(raw)
		if err != nil {
			return nil, err
		}
		parsed[i] = sh
	}
	return combine(parsed, threshold, o.scheme)
}

// ReconstructDecoded recovers a key from decoded shares. The scheme is taken
// from the first share that carries a header, falling back to the configured
// scheme for headerless input.
func ReconstructDecoded(shares []share.Share, threshold int, opts ...Option) (*symkey.Key, error) {
	o := newOptions(opts)
	raw := make([][]byte, len(shares))
	for i, sh := range shares {
		raw[i] = sh.Payload
	}
	for _, sh := range shares {
		if sh.HasHeader() && sh.Scheme != 0 {
			o.scheme = sh.Scheme
			break
		}
	}
	return Reconstruct(raw, threshold, WithScheme(o.scheme))
}

func combine(shares []secretsharing.Share, threshold int, scheme secretsharing.Scheme) (*symkey.Key, error) {
	shamir, err := secretsharing.NewShamir(&secretsharing.ShareConfig{
		Threshold:   threshold,
		TotalShares: threshold,
		Scheme:      scheme,
	})
	if err != nil {
		return nil, err
	}

	secret, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("failed to recover key: %w", err)
	}
	defer symkey.Wipe(secret)

	if !utf8.Valid(secret) {
		return nil, fmt.Errorf("%w: invalid key data", crustyerr.ErrKey)
	}
	key, err := symkey.FromBase64(string(secret))
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	return key, nil
}
