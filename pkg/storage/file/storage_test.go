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

package file

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-crusty/pkg/storage"
)

func TestFileStorageRoundTrip(t *testing.T) {
	fs, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.Put("shares/secondary.txt", []byte("AAAA-BBBB"), nil))

	got, err := fs.Get("shares/secondary.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAA-BBBB"), got)

	path, err := fs.Path("shares/secondary.txt")
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, fs.Put("shares/secondary.txt", []byte("CCCC"), nil))
	got, err = fs.Get("shares/secondary.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("CCCC"), got)

	ok, err := fs.Exists("shares/secondary.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fs.Put("recovery.png", []byte{0x89}, &storage.Options{Permissions: 0640}))
	keys, err := fs.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"recovery.png", "shares/secondary.txt"}, keys)

	keys, err = fs.List("shares/")
	require.NoError(t, err)
	assert.Equal(t, []string{"shares/secondary.txt"}, keys)

	require.NoError(t, fs.Delete("shares/secondary.txt"))
	_, err = fs.Get("shares/secondary.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, fs.Delete("shares/secondary.txt"), storage.ErrNotFound)

	ok, err = fs.Exists("shares/secondary.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoragePutNew(t *testing.T) {
	fs, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.PutNew("shares/recovery.txt", []byte("AAAA"), nil))
	err = fs.PutNew("shares/recovery.txt", []byte("BBBB"), nil)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	assert.ErrorIs(t, err, iofs.ErrExist)

	got, err := fs.Get("shares/recovery.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAA"), got)

	path, err := fs.Path("shares/recovery.txt")
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	assert.ErrorIs(t, fs.PutNew("../escape", []byte("x"), nil), storage.ErrInvalidKey)
}

func TestFileStorageRejectsUnsafeKeys(t *testing.T) {
	fs, err := New(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/../../escape", "/etc/passwd", "..", ".", "bad\x00key"} {
		t.Run(key, func(t *testing.T) {
			err := fs.Put(key, []byte("x"), nil)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)
			_, err = fs.Get(key)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)
		})
	}

	// Traversal that stays inside the root is fine.
	require.NoError(t, fs.Put("a/../inside", []byte("x"), nil))
	_, err = os.Stat(filepath.Join(fs.Root(), "inside"))
	assert.NoError(t, err)
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	root := filepath.Join(t.TempDir(), "nested", "dir")
	fs, err := New(root)
	require.NoError(t, err)
	info, err := os.Stat(fs.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
