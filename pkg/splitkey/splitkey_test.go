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

package splitkey

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-crusty/pkg/credstore"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/secretsharing"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/share"
)

func generateKey(t *testing.T) *symkey.Key {
	t.Helper()
	key, err := symkey.Generate()
	require.NoError(t, err)
	return key
}

func TestSplitAndReconstruct(t *testing.T) {
	for _, scheme := range []secretsharing.Scheme{secretsharing.SchemeGF256, secretsharing.SchemePrime} {
		t.Run(scheme.String(), func(t *testing.T) {
			key := generateKey(t)
			split, err := Split(key, 3, 5, PurposeStandard, WithScheme(scheme))
			require.NoError(t, err)

			assert.Equal(t, 3, split.Threshold())
			assert.Equal(t, 5, split.Total())
			assert.Equal(t, PurposeStandard, split.Purpose())
			assert.Equal(t, scheme, split.Scheme())
			assert.True(t, key.Equal(split.Key()))

			shares := split.Shares()
			subsets := [][]int{{0, 1, 2}, {0, 2, 4}, {4, 3, 1}, {0, 1, 2, 3, 4}}
			for _, subset := range subsets {
				picked := make([][]byte, len(subset))
				for i, idx := range subset {
					picked[i] = shares[idx]
				}
				got, err := Reconstruct(picked, 3, WithScheme(scheme))
				require.NoError(t, err, "subset %v", subset)
				assert.True(t, key.Equal(got), "subset %v", subset)
			}
		})
	}
}

func TestSplitParameterValidation(t *testing.T) {
	key := generateKey(t)

	_, err := Split(key, 1, 3, PurposeStandard)
	assert.True(t, errors.Is(err, crustyerr.ErrSharing))

	_, err = Split(key, 4, 3, PurposeStandard)
	assert.True(t, errors.Is(err, crustyerr.ErrSharing))

	_, err = Split(nil, 2, 3, PurposeStandard)
	assert.True(t, errors.Is(err, crustyerr.ErrKey))

	destroyed := generateKey(t)
	destroyed.Destroy()
	_, err = Split(destroyed, 2, 3, PurposeStandard)
	assert.True(t, errors.Is(err, crustyerr.ErrKey))
}

func TestReconstructInsufficientShares(t *testing.T) {
	split, err := Split(generateKey(t), 3, 5, PurposeStandard)
	require.NoError(t, err)

	_, err = Reconstruct(split.Shares()[:2], 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, crustyerr.ErrInsufficientShares))
	assert.True(t, errors.Is(err, crustyerr.ErrSharing))
	assert.Contains(t, err.Error(), "got 2, need at least 3")
}

func TestReconstructMixedSplits(t *testing.T) {
	key := generateKey(t)
	a, err := Split(key, 2, 3, PurposeStandard)
	require.NoError(t, err)
	b, err := Split(generateKey(t), 2, 3, PurposeStandard)
	require.NoError(t, err)

	sa, err := a.Share(0)
	require.NoError(t, err)
	sb, err := b.Share(1)
	require.NoError(t, err)

	got, err := Reconstruct([][]byte{sa, sb}, 2)
	if err == nil {
		assert.False(t, key.Equal(got))
	}
}

func TestShareIndexOutOfBounds(t *testing.T) {
	split, err := Split(generateKey(t), 2, 3, PurposeStandard)
	require.NoError(t, err)

	_, err = split.Share(3)
	assert.Error(t, err)
	_, err = split.ShareText(-1)
	assert.True(t, errors.Is(err, crustyerr.ErrEncoding))
	_, err = split.ShareMnemonic(5)
	assert.True(t, errors.Is(err, crustyerr.ErrEncoding))
}

func TestShareRenderingsDecode(t *testing.T) {
	key := generateKey(t)
	split, err := Split(key, 2, 3, PurposeStandard)
	require.NoError(t, err)

	text, err := split.ShareText(1)
	require.NoError(t, err)
	fromText, err := share.Decode(text)
	require.NoError(t, err)
	assert.Equal(t, byte(1), fromText.Index)
	assert.Equal(t, byte(2), fromText.Threshold)

	phrase, err := split.ShareMnemonic(2)
	require.NoError(t, err)
	fromPhrase, err := share.DecodeMnemonic(phrase)
	require.NoError(t, err)
	assert.Equal(t, byte(2), fromPhrase.Index)

	got, err := ReconstructDecoded([]share.Share{fromText, fromPhrase}, 2)
	require.NoError(t, err)
	assert.True(t, key.Equal(got))

	png, err := split.ShareQRCode(0, 128)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestTransferPackage(t *testing.T) {
	key := generateKey(t)
	split, err := Split(key, 2, 3, PurposeTransfer)
	require.NoError(t, err)

	pkg, err := NewTransferPackage(split)
	require.NoError(t, err)
	assert.Equal(t, 2, pkg.Threshold())
	assert.Equal(t, 3, pkg.Count())
	assert.Equal(t, share.FormatText, pkg.Format())

	for i := 0; i < pkg.Count(); i++ {
		text, err := pkg.ShareText(i)
		require.NoError(t, err)
		want, err := split.ShareText(i)
		require.NoError(t, err)
		assert.Equal(t, want, text)
	}

	got, err := pkg.ReconstructKey([]int{0, 2})
	require.NoError(t, err)
	assert.True(t, key.Equal(got))

	_, err = pkg.ReconstructKey([]int{1})
	assert.True(t, errors.Is(err, crustyerr.ErrInsufficientShares))

	_, err = pkg.ShareText(3)
	assert.True(t, errors.Is(err, crustyerr.ErrTransfer))

	phrase, err := pkg.ShareMnemonic(1)
	require.NoError(t, err)
	text, err := share.FromMnemonic(phrase)
	require.NoError(t, err)
	want, err := pkg.ShareText(1)
	require.NoError(t, err)
	assert.Equal(t, strings.ReplaceAll(want, "-", ""), text)

	path := filepath.Join(t.TempDir(), "share-1.txt")
	require.NoError(t, pkg.SaveShareToFile(1, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}

func TestTransferPackageRejectsStandardSplit(t *testing.T) {
	split, err := Split(generateKey(t), 2, 3, PurposeStandard)
	require.NoError(t, err)

	_, err = NewTransferPackage(split)
	require.Error(t, err)
	assert.True(t, errors.Is(err, crustyerr.ErrTransfer))
	assert.Contains(t, err.Error(), "cannot create transfer package from non-transfer key")
}

func newManager(t *testing.T, opts ...ManagerOption) (*Manager, *credstore.Memory) {
	t.Helper()
	store := credstore.NewMemory()
	m, err := NewManager("crusty-test", filepath.Join(t.TempDir(), "shares"), store, opts...)
	require.NoError(t, err)
	return m, store
}

func TestManagerProtectAndReconstruct(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t)
	key := generateKey(t)

	split, err := m.Protect(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, split.Threshold())
	assert.Equal(t, 3, split.Total())

	accounts, err := store.Accounts("crusty-test")
	require.NoError(t, err)
	assert.Equal(t, []string{"crusty-share-0"}, accounts)

	formats := []share.Format{share.FormatBinary, share.FormatText, share.FormatMnemonic}
	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			path, err := m.SaveSecondaryShare(split, "secondary."+f.String(), f)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(m.ShareDir(), "secondary."+f.String()), path)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			got, err := m.ReconstructKey(ctx, path)
			require.NoError(t, err)
			assert.True(t, key.Equal(got))
		})
	}
}

func TestManagerRecoveryShare(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	key := generateKey(t)

	split, err := m.Protect(ctx, key)
	require.NoError(t, err)

	path, err := m.SaveRecoveryShare(split, "recovery.txt", share.FormatMnemonic)
	require.NoError(t, err)
	recovery, err := share.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte(RecoveryShare), recovery.Index)

	got, err := m.ReconstructKeyWithRecovery(ctx, recovery)
	require.NoError(t, err)
	assert.True(t, key.Equal(got))

	qrPath, err := m.SaveRecoveryShareQRCode(split, "recovery.png")
	require.NoError(t, err)
	png, err := os.ReadFile(qrPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestManagerReconstructFromTextShares(t *testing.T) {
	m, _ := newManager(t)
	key := generateKey(t)
	split, err := Split(key, 2, 3, PurposeStandard)
	require.NoError(t, err)

	t1, err := split.ShareText(1)
	require.NoError(t, err)
	t2, err := split.ShareText(2)
	require.NoError(t, err)

	got, err := m.ReconstructKeyFromTextShares([]string{t1, t2})
	require.NoError(t, err)
	assert.True(t, key.Equal(got))

	_, err = m.ReconstructKeyFromTextShares([]string{t1})
	assert.True(t, errors.Is(err, crustyerr.ErrInsufficientShares))
}

func TestManagerPrimaryShareLifecycle(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.RetrievePrimaryShare(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, credstore.ErrNotFound))
	assert.True(t, errors.Is(err, crustyerr.ErrStorage))

	split, err := Split(generateKey(t), 2, 3, PurposeStandard)
	require.NoError(t, err)
	require.NoError(t, m.StorePrimaryShare(ctx, split))

	primary, err := m.RetrievePrimaryShare(ctx)
	require.NoError(t, err)
	want, err := split.Share(PrimaryShare)
	require.NoError(t, err)
	assert.Equal(t, want, primary.Payload)

	require.NoError(t, m.DeletePrimaryShare(ctx))
	require.NoError(t, m.DeletePrimaryShare(ctx))
	_, err = m.RetrievePrimaryShare(ctx)
	assert.True(t, errors.Is(err, credstore.ErrNotFound))
}

func TestManagerShareFilesAreExclusive(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	protected, err := m.Protected(ctx)
	require.NoError(t, err)
	assert.False(t, protected)

	first, err := m.Protect(ctx, generateKey(t))
	require.NoError(t, err)
	protected, err = m.Protected(ctx)
	require.NoError(t, err)
	assert.True(t, protected)

	path, err := m.SaveSecondaryShare(first, "secondary.txt", share.FormatText)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	exists, err := m.ShareExists("secondary.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	second, err := Split(generateKey(t), 2, 3, PurposeStandard)
	require.NoError(t, err)
	_, err = m.SaveSecondaryShare(second, "secondary.txt", share.FormatText)
	assert.True(t, errors.Is(err, crustyerr.ErrDestinationExists))
	assert.True(t, errors.Is(err, fs.ErrExist))
	_, err = m.SaveRecoveryShareQRCode(second, "secondary.txt")
	assert.True(t, errors.Is(err, crustyerr.ErrDestinationExists))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = m.WithOverwrite().SaveSecondaryShare(second, "secondary.txt", share.FormatText)
	require.NoError(t, err)
	after, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	_, err = m.SaveSecondaryShare(second, "secondary.txt", share.FormatText)
	assert.True(t, errors.Is(err, crustyerr.ErrDestinationExists))
}

func TestManagerRejectsTraversal(t *testing.T) {
	m, _ := newManager(t)
	split, err := Split(generateKey(t), 2, 3, PurposeStandard)
	require.NoError(t, err)

	_, err = m.SaveSecondaryShare(split, "../escape.txt", share.FormatText)
	assert.True(t, errors.Is(err, crustyerr.ErrStorage))
}

func TestManagerPrimeScheme(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, WithManagerScheme(secretsharing.SchemePrime))
	key := generateKey(t)

	split, err := m.Protect(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, secretsharing.SchemePrime, split.Scheme())

	path, err := m.SaveSecondaryShare(split, "secondary.bin", share.FormatBinary)
	require.NoError(t, err)

	got, err := m.ReconstructKey(ctx, path)
	require.NoError(t, err)
	assert.True(t, key.Equal(got))
}

func TestManagerCreateTransferPackage(t *testing.T) {
	m, _ := newManager(t)
	key := generateKey(t)

	pkg, err := m.CreateTransferPackage(key, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, pkg.Count())

	got, err := pkg.ReconstructKey([]int{4, 0, 2})
	require.NoError(t, err)
	assert.True(t, key.Equal(got))
	assert.False(t, key.Destroyed())
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager("", t.TempDir(), credstore.NewMemory())
	assert.Error(t, err)
	_, err = NewManager("app", t.TempDir(), nil)
	assert.Error(t, err)
}
