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
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

func TestNewShamir(t *testing.T) {
	tests := []struct {
		name      string
		config    *ShareConfig
		wantError bool
	}{
		{name: "valid configuration", config: &ShareConfig{Threshold: 3, TotalShares: 5}},
		{name: "threshold equals total shares", config: &ShareConfig{Threshold: 5, TotalShares: 5}},
		{name: "minimum valid configuration", config: &ShareConfig{Threshold: 2, TotalShares: 2}},
		{name: "maximum valid configuration", config: &ShareConfig{Threshold: 255, TotalShares: 255}},
		{name: "prime scheme", config: &ShareConfig{Threshold: 2, TotalShares: 3, Scheme: SchemePrime}},
		{name: "nil config", config: nil, wantError: true},
		{name: "threshold one", config: &ShareConfig{Threshold: 1, TotalShares: 3}, wantError: true},
		{name: "threshold zero", config: &ShareConfig{Threshold: 0, TotalShares: 3}, wantError: true},
		{name: "total below threshold", config: &ShareConfig{Threshold: 4, TotalShares: 3}, wantError: true},
		{name: "too many shares", config: &ShareConfig{Threshold: 2, TotalShares: 256}, wantError: true},
		{name: "unknown scheme", config: &ShareConfig{Threshold: 2, TotalShares: 3, Scheme: 9}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewShamir(tt.config)
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, crustyerr.ErrSharing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config.Threshold, s.Threshold())
		})
	}
}

func TestNewShamirThresholdMessage(t *testing.T) {
	_, err := NewShamir(&ShareConfig{Threshold: 1, TotalShares: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold must be at least 2")
}

func newSecret(t *testing.T, n int) []byte {
	t.Helper()
	secret := make([]byte, n)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	return secret
}

// subsets returns every k-element subset of shares, preserving order.
func subsets(shares []Share, k int) [][]Share {
	var out [][]Share
	var pick func(start int, cur []Share)
	pick = func(start int, cur []Share) {
		if len(cur) == k {
			out = append(out, append([]Share{}, cur...))
			return
		}
		for i := start; i < len(shares); i++ {
			pick(i+1, append(cur, shares[i]))
		}
	}
	pick(0, nil)
	return out
}

func TestSplitCombineAnySubset(t *testing.T) {
	for _, scheme := range []Scheme{SchemeGF256, SchemePrime} {
		for _, params := range [][2]int{{2, 3}, {3, 5}, {4, 4}} {
			threshold, total := params[0], params[1]
			t.Run(scheme.String(), func(t *testing.T) {
				s, err := NewShamir(&ShareConfig{Threshold: threshold, TotalShares: total, Scheme: scheme})
				require.NoError(t, err)

				secret := []byte("c2VjcmV0LWtleS1tYXRlcmlhbC0zMi1ieXRlcy1sb25n")
				shares, err := s.Split(secret)
				require.NoError(t, err)
				require.Len(t, shares, total)

				for _, subset := range subsets(shares, threshold) {
					got, err := s.Combine(subset)
					require.NoError(t, err)
					assert.Equal(t, secret, got)
				}
			})
		}
	}
}

func TestSplitGF256ShareShape(t *testing.T) {
	s, err := NewShamir(&ShareConfig{Threshold: 2, TotalShares: 3})
	require.NoError(t, err)

	secret := newSecret(t, 44)
	shares, err := s.Split(secret)
	require.NoError(t, err)

	for i, share := range shares {
		assert.Equal(t, byte(i+1), share.Index)
		assert.Len(t, share.Value, len(secret))
		assert.Len(t, share.Bytes(), len(secret)+1)
		assert.NotEqual(t, secret, share.Value)
	}
}

func TestSplitEmptySecret(t *testing.T) {
	s, err := NewShamir(&ShareConfig{Threshold: 2, TotalShares: 3})
	require.NoError(t, err)
	_, err = s.Split(nil)
	assert.ErrorIs(t, err, crustyerr.ErrSharing)
}

func TestCombineInsufficientShares(t *testing.T) {
	s, err := NewShamir(&ShareConfig{Threshold: 3, TotalShares: 5})
	require.NoError(t, err)
	shares, err := s.Split(newSecret(t, 16))
	require.NoError(t, err)

	_, err = s.Combine(shares[:2])
	require.Error(t, err)
	assert.ErrorIs(t, err, crustyerr.ErrInsufficientShares)
	assert.Contains(t, err.Error(), "got 2, need at least 3")
}

func TestCombineRejectsDuplicates(t *testing.T) {
	s, err := NewShamir(&ShareConfig{Threshold: 2, TotalShares: 3})
	require.NoError(t, err)
	shares, err := s.Split(newSecret(t, 16))
	require.NoError(t, err)

	_, err = s.Combine([]Share{shares[1], shares[1]})
	assert.ErrorIs(t, err, crustyerr.ErrSharing)
}

func TestCombineRejectsMismatchedLengths(t *testing.T) {
	s, err := NewShamir(&ShareConfig{Threshold: 2, TotalShares: 3})
	require.NoError(t, err)
	shares, err := s.Split(newSecret(t, 16))
	require.NoError(t, err)

	short := Share{Index: shares[1].Index, Value: shares[1].Value[:8]}
	_, err = s.Combine([]Share{shares[0], short})
	assert.ErrorIs(t, err, crustyerr.ErrSharing)
}

func TestCombineFewerThanThresholdIsWrong(t *testing.T) {
	// A 3-of-5 polynomial interpolated through only two points (under a
	// 2-of-n instance) yields garbage rather than the secret.
	s3, err := NewShamir(&ShareConfig{Threshold: 3, TotalShares: 5})
	require.NoError(t, err)
	s2, err := NewShamir(&ShareConfig{Threshold: 2, TotalShares: 5})
	require.NoError(t, err)

	secret := newSecret(t, 32)
	shares, err := s3.Split(secret)
	require.NoError(t, err)

	got, err := s2.Combine(shares[:2])
	require.NoError(t, err)
	assert.False(t, bytes.Equal(secret, got))
}

func TestShareBytesRoundTrip(t *testing.T) {
	share := Share{Index: 7, Value: []byte{1, 2, 3}}
	parsed, err := ParseShare(share.Bytes())
	require.NoError(t, err)
	assert.Equal(t, share, parsed)

	_, err = ParseShare([]byte{1})
	assert.ErrorIs(t, err, crustyerr.ErrSharing)
	_, err = ParseShare([]byte{0, 1, 2})
	assert.ErrorIs(t, err, crustyerr.ErrSharing)
}

func TestParseScheme(t *testing.T) {
	for name, want := range map[string]Scheme{"": SchemeGF256, "gf256": SchemeGF256, "prime": SchemePrime, "sssa": SchemePrime} {
		got, err := ParseScheme(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseScheme("nope")
	assert.ErrorIs(t, err, crustyerr.ErrSharing)
}

func TestGFArithmetic(t *testing.T) {
	for a := 1; a < 256; a++ {
		inv := gfInverse(byte(a))
		assert.Equal(t, byte(1), gfMul(byte(a), inv), "a=%d", a)
		assert.Equal(t, gfMultiply(byte(a), 0x53), gfMul(byte(a), 0x53))
	}
	assert.Equal(t, byte(0), gfMul(0, 0x42))
	assert.Panics(t, func() { gfInverse(0) })
}

func TestEvaluatePolynomialConstantTerm(t *testing.T) {
	coeffs := []byte{0x42, 0x13, 0x37}
	assert.Equal(t, byte(0x42), evaluatePolynomial(coeffs, 0))
	assert.Equal(t, byte(0), evaluatePolynomial(nil, 5))
}
