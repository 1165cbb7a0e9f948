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
	"fmt"
	"os"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/secretsharing"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/share"
)

// TransferPackage is the set of text shares for a key sent out of band.
// It is immutable once created.
type TransferPackage struct {
	shares    []string
	threshold int
	scheme    secretsharing.Scheme
}

// NewTransferPackage renders every share of a transfer split as text.
func NewTransferPackage(split *SplitKey) (*TransferPackage, error) {
	if split.Purpose() != PurposeTransfer {
		return nil, fmt.Errorf("%w: cannot create transfer package from non-transfer key", crustyerr.ErrTransfer)
	}

	texts := make([]string, split.Total())
	for i := range texts {
		text, err := split.ShareText(i)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}
	return &TransferPackage{
		shares:    texts,
		threshold: split.Threshold(),
		scheme:    split.Scheme(),
	}, nil
}

// ShareText returns share i as text.
func (p *TransferPackage) ShareText(i int) (string, error) {
	if i < 0 || i >= len(p.shares) {
		return "", fmt.Errorf("%w: share index %d out of bounds", crustyerr.ErrTransfer, i)
	}
	return p.shares[i], nil
}

// ShareMnemonic returns share i as a mnemonic phrase.
func (p *TransferPackage) ShareMnemonic(i int) (string, error) {
	text, err := p.ShareText(i)
	if err != nil {
		return "", err
	}
	return share.ToMnemonic(text), nil
}

// Threshold returns the number of shares needed to reconstruct.
func (p *TransferPackage) Threshold() int {
	return p.threshold
}

// Count returns the number of shares in the package.
func (p *TransferPackage) Count() int {
	return len(p.shares)
}

// Format returns the format the shares are held in.
func (p *TransferPackage) Format() share.Format {
	return share.FormatText
}

// SaveShareToFile writes share i as text to path.
func (p *TransferPackage) SaveShareToFile(i int, path string) error {
	text, err := p.ShareText(i)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		return fmt.Errorf("%w: failed to write share file: %w", crustyerr.ErrIO, err)
	}
	return nil
}

// ReconstructKey recovers the key from the shares at the given indices.
func (p *TransferPackage) ReconstructKey(indices []int) (*symkey.Key, error) {
	if len(indices) < p.threshold {
		return nil, fmt.Errorf("%w: got %d, need at least %d", crustyerr.ErrInsufficientShares, len(indices), p.threshold)
	}

	decoded := make([]share.Share, len(indices))
	for i, idx := range indices {
		text, err := p.ShareText(idx)
		if err != nil {
			return nil, err
		}
		sh, err := share.Decode(text)
		if err != nil {
			return nil, err
		}
		decoded[i] = sh
	}
	return ReconstructDecoded(decoded, p.threshold, WithScheme(p.scheme))
}
