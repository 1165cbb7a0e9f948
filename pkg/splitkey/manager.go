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
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jeremyhahn/go-crusty/pkg/credstore"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/secretsharing"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/logging"
	"github.com/jeremyhahn/go-crusty/pkg/share"
	"github.com/jeremyhahn/go-crusty/pkg/storage"
	"github.com/jeremyhahn/go-crusty/pkg/storage/file"
)

// Positions of the shares of a protected key.
const (
	PrimaryShare   = 0
	SecondaryShare = 1
	RecoveryShare  = 2
)

// Protected keys are split 2-of-3.
const (
	protectThreshold = 2
	protectTotal     = 3
)

// ShareAccount returns the credential store account holding share index.
func ShareAccount(index int) string {
	return fmt.Sprintf("crusty-share-%d", index)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerScheme selects the sharing scheme for new splits and for
// headerless shares.
func WithManagerScheme(scheme secretsharing.Scheme) ManagerOption {
	return func(m *Manager) {
		m.scheme = scheme
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// Manager keeps the shares of the user's keys. The primary share lives in a
// credential store under the application name, the secondary and recovery
// shares are written to a share directory.
type Manager struct {
	appName string
	files   *file.FileStorage
	store   credstore.Store
	scheme  secretsharing.Scheme
	logger  *logging.Logger

	overwrite bool
}

// NewManager creates a manager, creating shareDir if needed.
func NewManager(appName, shareDir string, store credstore.Store, opts ...ManagerOption) (*Manager, error) {
	if appName == "" {
		return nil, fmt.Errorf("%w: application name cannot be empty", crustyerr.ErrStorage)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: credential store cannot be nil", crustyerr.ErrStorage)
	}
	files, err := file.New(shareDir)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		appName: appName,
		files:   files,
		store:   store,
		scheme:  secretsharing.SchemeGF256,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrDiscard(m.logger).With("component", "splitkey", "app", appName)
	return m, nil
}

// ShareDir returns the absolute share directory.
func (m *Manager) ShareDir() string {
	return m.files.Root()
}

// WithOverwrite returns a copy of m whose share files replace existing
// files. By default saving a share to an existing file fails with
// ErrDestinationExists.
func (m *Manager) WithOverwrite() *Manager {
	c := *m
	c.overwrite = true
	return &c
}

// Protected reports whether a primary share is stored in the credential
// store.
func (m *Manager) Protected(ctx context.Context) (bool, error) {
	_, err := m.store.Get(ctx, m.appName, ShareAccount(PrimaryShare))
	if errors.Is(err, credstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to retrieve share: %w", err)
	}
	return true, nil
}

// ShareExists reports whether filename exists in the share directory.
func (m *Manager) ShareExists(filename string) (bool, error) {
	return m.files.Exists(filename)
}

// Protect splits key 2-of-3 and stores the primary share. The caller saves
// the secondary and recovery shares with SaveSecondaryShare and
// SaveRecoveryShare.
func (m *Manager) Protect(ctx context.Context, key *symkey.Key) (*SplitKey, error) {
	split, err := Split(key, protectThreshold, protectTotal, PurposeStandard, WithScheme(m.scheme))
	if err != nil {
		return nil, err
	}
	if err := m.StorePrimaryShare(ctx, split); err != nil {
		split.Destroy()
		return nil, err
	}
	return split, nil
}

// StorePrimaryShare writes share 0 of split to the credential store.
func (m *Manager) StorePrimaryShare(ctx context.Context, split *SplitKey) error {
	raw, err := split.Share(PrimaryShare)
	if err != nil {
		return fmt.Errorf("%w: %w", crustyerr.ErrStorage, err)
	}
	account := ShareAccount(PrimaryShare)
	if err := m.store.Set(ctx, m.appName, account, base64.StdEncoding.EncodeToString(raw)); err != nil {
		return fmt.Errorf("failed to store share: %w", err)
	}
	m.logger.Debug("primary share stored", "account", account)
	return nil
}

// RetrievePrimaryShare reads share 0 from the credential store.
func (m *Manager) RetrievePrimaryShare(ctx context.Context) (share.Share, error) {
	value, err := m.store.Get(ctx, m.appName, ShareAccount(PrimaryShare))
	if err != nil {
		return share.Share{}, fmt.Errorf("failed to retrieve share: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return share.Share{}, fmt.Errorf("%w: invalid share data: %w", crustyerr.ErrStorage, err)
	}
	return share.Share{Scheme: m.scheme, Payload: raw}, nil
}

// DeletePrimaryShare removes share 0 from the credential store. A missing
// entry is not an error.
func (m *Manager) DeletePrimaryShare(ctx context.Context) error {
	err := m.store.Delete(ctx, m.appName, ShareAccount(PrimaryShare))
	if err != nil && !errors.Is(err, credstore.ErrNotFound) {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	return nil
}

// SaveSecondaryShare writes share 1 of split to filename in the share
// directory and returns its path.
func (m *Manager) SaveSecondaryShare(split *SplitKey, filename string, format share.Format) (string, error) {
	return m.saveShare(split, SecondaryShare, filename, format)
}

// LoadSecondaryShare reads a share file in any format.
func (m *Manager) LoadSecondaryShare(path string) (share.Share, error) {
	return share.LoadFile(path)
}

// SaveRecoveryShare writes share 2 of split to filename in the share
// directory and returns its path.
func (m *Manager) SaveRecoveryShare(split *SplitKey, filename string, format share.Format) (string, error) {
	return m.saveShare(split, RecoveryShare, filename, format)
}

// SaveRecoveryShareQRCode writes share 2 of split as a PNG QR code.
func (m *Manager) SaveRecoveryShareQRCode(split *SplitKey, filename string) (string, error) {
	png, err := split.ShareQRCode(RecoveryShare, share.DefaultQRSize)
	if err != nil {
		return "", err
	}
	return m.put(filename, png)
}

func (m *Manager) saveShare(split *SplitKey, index int, filename string, format share.Format) (string, error) {
	content, err := split.ShareFormatted(index, format)
	if err != nil {
		return "", err
	}
	path, err := m.put(filename, []byte(content))
	if err != nil {
		return "", err
	}
	m.logger.Debug("share saved", "index", index, "format", format.String(), "path", path)
	return path, nil
}

func (m *Manager) put(filename string, content []byte) (string, error) {
	path, err := m.files.Path(filename)
	if err != nil {
		return "", err
	}
	if m.overwrite {
		err = m.files.Put(filename, content, storage.DefaultOptions())
	} else {
		err = m.files.PutNew(filename, content, storage.DefaultOptions())
	}
	if errors.Is(err, storage.ErrAlreadyExists) {
		return "", fmt.Errorf("%w: %s: %w", crustyerr.ErrDestinationExists, path, fs.ErrExist)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// ReconstructKey combines the primary share with the secondary share file at
// secondaryPath.
func (m *Manager) ReconstructKey(ctx context.Context, secondaryPath string) (*symkey.Key, error) {
	primary, err := m.RetrievePrimaryShare(ctx)
	if err != nil {
		return nil, err
	}
	secondary, err := m.LoadSecondaryShare(secondaryPath)
	if err != nil {
		return nil, err
	}
	return m.reconstruct([]share.Share{primary, secondary}, protectThreshold)
}

// ReconstructKeyWithRecovery combines the primary share with a recovery share.
func (m *Manager) ReconstructKeyWithRecovery(ctx context.Context, recovery share.Share) (*symkey.Key, error) {
	primary, err := m.RetrievePrimaryShare(ctx)
	if err != nil {
		return nil, err
	}
	return m.reconstruct([]share.Share{primary, recovery}, protectThreshold)
}

// ReconstructKeyFromTextShares combines text shares without touching the
// credential store. The threshold is read from the share headers.
func (m *Manager) ReconstructKeyFromTextShares(texts []string) (*symkey.Key, error) {
	if len(texts) < protectThreshold {
		return nil, fmt.Errorf("%w: got %d, need at least %d", crustyerr.ErrInsufficientShares, len(texts), protectThreshold)
	}

	threshold := protectThreshold
	decoded := make([]share.Share, len(texts))
	for i, text := range texts {
		sh, err := share.Decode(text)
		if err != nil {
			return nil, err
		}
		if int(sh.Threshold) > threshold {
			threshold = int(sh.Threshold)
		}
		decoded[i] = sh
	}
	return m.reconstruct(decoded, threshold)
}

func (m *Manager) reconstruct(shares []share.Share, threshold int) (*symkey.Key, error) {
	key, err := ReconstructDecoded(shares, threshold, WithScheme(m.scheme))
	if err != nil {
		m.logger.Warn("key reconstruction failed", "error", err)
		return nil, err
	}
	m.logger.Debug("key reconstructed", "shares", len(shares))
	return key, nil
}

// CreateTransferPackage splits key for transfer and packages the shares.
func (m *Manager) CreateTransferPackage(key *symkey.Key, threshold, total int) (*TransferPackage, error) {
	split, err := Split(key, threshold, total, PurposeTransfer, WithScheme(m.scheme))
	if err != nil {
		return nil, err
	}
	defer split.Destroy()
	return NewTransferPackage(split)
}
