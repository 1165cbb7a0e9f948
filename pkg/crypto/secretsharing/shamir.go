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

package secretsharing

import (
	"crypto/rand"
	"fmt"
	"io"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// Scheme selects the field a Shamir instance works in.
type Scheme byte

const (
	// SchemeGF256 shares each secret byte over GF(256).
	SchemeGF256 Scheme = iota + 1

	// SchemePrime shares the secret over a 256-bit prime field via sssa-golang.
	SchemePrime
)

// MaxShares is the largest number of shares either scheme can produce.
const MaxShares = 255

func (s Scheme) String() string {
	switch s {
	case SchemeGF256:
		return "gf256"
	case SchemePrime:
		return "prime"
	default:
		return fmt.Sprintf("Scheme(%d)", byte(s))
	}
}

// ParseScheme maps a configuration name to a Scheme. The empty string selects
// SchemeGF256.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "", "gf256":
		return SchemeGF256, nil
	case "prime", "sssa":
		return SchemePrime, nil
	default:
		return 0, fmt.Errorf("%w: unknown sharing scheme %q", crustyerr.ErrSharing, name)
	}
}

// ShareConfig configures secret sharing parameters.
type ShareConfig struct {
	Threshold   int    // M - minimum shares needed to reconstruct
	TotalShares int    // N - total shares to create
	Scheme      Scheme // zero selects SchemeGF256
}

// Share represents a single share of a secret.
type Share struct {
	Index byte   // x-coordinate (1-255)
	Value []byte // y bytes (GF256) or share string (Prime)
}

// Bytes returns the raw share: the index byte followed by the value.
func (s Share) Bytes() []byte {
	out := make([]byte, 1+len(s.Value))
	out[0] = s.Index
	copy(out[1:], s.Value)
	return out
}

// ParseShare splits a raw share produced by Bytes.
func ParseShare(raw []byte) (Share, error) {
	if len(raw) < 2 {
		return Share{}, fmt.Errorf("%w: share too short (%d bytes)", crustyerr.ErrSharing, len(raw))
	}
	if raw[0] == 0 {
		return Share{}, fmt.Errorf("%w: share has invalid index 0", crustyerr.ErrSharing)
	}
	value := make([]byte, len(raw)-1)
	copy(value, raw[1:])
	return Share{Index: raw[0], Value: value}, nil
}

// Shamir implements Shamir's Secret Sharing Scheme.
type Shamir struct {
	config *ShareConfig
	random io.Reader
}

// NewShamir creates a new Shamir instance with the given configuration.
// Returns an error if the configuration is invalid.
func NewShamir(config *ShareConfig) (*Shamir, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", crustyerr.ErrSharing)
	}
	if config.Threshold < 2 {
		return nil, fmt.Errorf("%w: threshold must be at least 2, got %d", crustyerr.ErrSharing, config.Threshold)
	}
	if config.TotalShares < config.Threshold {
		return nil, fmt.Errorf("%w: total shares (%d) must be >= threshold (%d)", crustyerr.ErrSharing, config.TotalShares, config.Threshold)
	}
	if config.TotalShares > MaxShares {
		return nil, fmt.Errorf("%w: total shares must be <= %d, got %d", crustyerr.ErrSharing, MaxShares, config.TotalShares)
	}

	cfg := *config
	if cfg.Scheme == 0 {
		cfg.Scheme = SchemeGF256
	}
	if cfg.Scheme != SchemeGF256 && cfg.Scheme != SchemePrime {
		return nil, fmt.Errorf("%w: unsupported scheme %s", crustyerr.ErrSharing, cfg.Scheme)
	}

	return &Shamir{
		config: &cfg,
		random: rand.Reader,
	}, nil
}

// Threshold returns the configured threshold.
func (s *Shamir) Threshold() int {
	return s.config.Threshold
}

// Scheme returns the field the instance works in.
func (s *Shamir) Scheme() Scheme {
	return s.config.Scheme
}

// Split divides a secret into N shares, requiring M to reconstruct.
func (s *Shamir) Split(secret []byte) ([]Share, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: secret cannot be empty", crustyerr.ErrSharing)
	}
	if s.config.Scheme == SchemePrime {
		return splitPrime(secret, s.config.Threshold, s.config.TotalShares)
	}
	return s.splitGF256(secret)
}

// Combine reconstructs the secret from M or more shares. Only the first M
// shares are used.
func (s *Shamir) Combine(shares []Share) ([]byte, error) {
	if len(shares) < s.config.Threshold {
		return nil, fmt.Errorf("%w: got %d, need at least %d", crustyerr.ErrInsufficientShares, len(shares), s.config.Threshold)
	}

	shares = shares[:s.config.Threshold]
	if err := s.Verify(shares); err != nil {
		return nil, fmt.Errorf("share verification failed: %w", err)
	}

	if s.config.Scheme == SchemePrime {
		return combinePrime(shares)
	}
	return combineGF256(shares), nil
}

// Verify checks that shares are well formed and mutually consistent: non-zero
// distinct indices and, for GF256, equal value lengths.
func (s *Shamir) Verify(shares []Share) error {
	seen := make(map[byte]int, len(shares))
	for i, share := range shares {
		if share.Index == 0 {
			return fmt.Errorf("%w: share %d has invalid index 0", crustyerr.ErrSharing, i)
		}
		if len(share.Value) == 0 {
			return fmt.Errorf("%w: share %d has empty value", crustyerr.ErrSharing, i)
		}
		if j, dup := seen[share.Index]; dup {
			return fmt.Errorf("%w: shares %d and %d have the same index %d", crustyerr.ErrSharing, j, i, share.Index)
		}
		seen[share.Index] = i

		if s.config.Scheme == SchemeGF256 && len(share.Value) != len(shares[0].Value) {
			return fmt.Errorf("%w: share %d length %d differs from share 0 length %d",
				crustyerr.ErrSharing, i, len(share.Value), len(shares[0].Value))
		}
	}
	return nil
}

func (s *Shamir) splitGF256(secret []byte) ([]Share, error) {
	shares := make([]Share, s.config.TotalShares)
	for i := range shares {
		shares[i].Index = byte(i + 1) // Index starts at 1
		shares[i].Value = make([]byte, len(secret))
	}

	coeffs := make([]byte, s.config.Threshold)
	defer wipe(coeffs)

	// For each byte in the secret, create a polynomial and evaluate it
	for byteIdx := range secret {
		// a0 is the secret byte; a1..a(m-1) are random
		coeffs[0] = secret[byteIdx]
		if _, err := io.ReadFull(s.random, coeffs[1:]); err != nil {
			return nil, fmt.Errorf("%w: failed to generate random coefficients: %w", crustyerr.ErrSharing, err)
		}

		for i := range shares {
			shares[i].Value[byteIdx] = evaluatePolynomial(coeffs, shares[i].Index)
		}
	}

	return shares, nil
}

func combineGF256(shares []Share) []byte {
	secret := make([]byte, len(shares[0].Value))
	for byteIdx := range secret {
		secret[byteIdx] = lagrangeInterpolate(shares, byteIdx)
	}
	return secret
}

// evaluatePolynomial evaluates a polynomial at point x in GF(256).
// Uses Horner's method: p(x) = a0 + x(a1 + x(a2 + ... + x*an))
func evaluatePolynomial(coeffs []byte, x byte) byte {
	if len(coeffs) == 0 {
		return 0
	}

	result := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		result = gfAdd(gfMul(result, x), coeffs[i])
	}
	return result
}

// lagrangeInterpolate evaluates the interpolating polynomial at x=0 for one
// byte position. Indices must be distinct.
func lagrangeInterpolate(shares []Share, byteIdx int) byte {
	var result byte

	for i := range shares {
		xi := shares[i].Index
		yi := shares[i].Value[byteIdx]

		// l_i(0) = prod(xj) / prod(xi - xj); subtraction is XOR
		var numerator byte = 1
		var denominator byte = 1
		for j := range shares {
			if i == j {
				continue
			}
			xj := shares[j].Index
			numerator = gfMul(numerator, xj)
			denominator = gfMul(denominator, gfSub(xi, xj))
		}

		basis := gfMul(numerator, gfInverse(denominator))
		result = gfAdd(result, gfMul(yi, basis))
	}

	return result
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
