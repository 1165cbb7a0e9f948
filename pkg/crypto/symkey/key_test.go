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

package symkey

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

func TestGenerate(t *testing.T) {
	k1, err := Generate()
	require.NoError(t, err)
	k2, err := Generate()
	require.NoError(t, err)

	assert.Len(t, k1.Bytes(), Size)
	assert.False(t, k1.Equal(k2), "two generated keys should differ")
}

func TestBase64RoundTrip(t *testing.T) {
	k, err := Generate()
	require.NoError(t, err)

	text := k.Base64()
	assert.Len(t, text, 44)

	decoded, err := FromBase64(text)
	require.NoError(t, err)
	assert.True(t, k.Equal(decoded))

	decoded, err = FromBase64("  " + text + "\n")
	require.NoError(t, err)
	assert.True(t, k.Equal(decoded))
}

func TestFromBase64Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", base64.StdEncoding.EncodeToString(make([]byte, 16))},
		{"too long", base64.StdEncoding.EncodeToString(make([]byte, 33))},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBase64(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, crustyerr.ErrKey)
		})
	}
}

func TestNewRejectsBadLength(t *testing.T) {
	_, err := New(make([]byte, 31))
	assert.ErrorIs(t, err, crustyerr.ErrKey)
}

func TestSaveAndLoadFile(t *testing.T) {
	k, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.txt")
	require.NoError(t, k.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, k.Base64(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, k.Equal(loaded))
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, crustyerr.ErrIO)
}

func TestDestroy(t *testing.T) {
	k, err := Generate()
	require.NoError(t, err)
	c := k.Clone()

	k.Destroy()
	assert.True(t, k.Destroyed())
	assert.Nil(t, k.Bytes())
	assert.Equal(t, make([]byte, Size), k.b[:])
	assert.Error(t, k.SaveToFile(filepath.Join(t.TempDir(), "k")))

	// Destroying twice is harmless and does not affect clones.
	k.Destroy()
	assert.False(t, c.Destroyed())
	assert.Len(t, c.Bytes(), Size)
}

func TestStringRedacted(t *testing.T) {
	k, err := Generate()
	require.NoError(t, err)
	assert.False(t, strings.Contains(k.String(), k.Base64()))
}

func TestDeriveForRecipient(t *testing.T) {
	master, err := Generate()
	require.NoError(t, err)

	a, err := DeriveForRecipient(master, "Alice@Example.com ")
	require.NoError(t, err)
	b, err := DeriveForRecipient(master, "alice@example.com")
	require.NoError(t, err)
	c, err := DeriveForRecipient(master, "bob@example.com")
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "normalization should make keys equal")
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(master))

	other, err := Generate()
	require.NoError(t, err)
	d, err := DeriveForRecipient(other, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, a.Equal(d), "different masters must derive different keys")
}

func TestDeriveForRecipientInvalid(t *testing.T) {
	master, err := Generate()
	require.NoError(t, err)

	_, err = DeriveForRecipient(master, "   ")
	assert.ErrorIs(t, err, crustyerr.ErrEncoding)

	master.Destroy()
	_, err = DeriveForRecipient(master, "alice@example.com")
	assert.ErrorIs(t, err, crustyerr.ErrKey)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM\t"))
}
