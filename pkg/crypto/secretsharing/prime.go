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
	"encoding/hex"
	"fmt"

	"github.com/SSSaaS/sssa-golang"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// splitPrime shares secret with sssa-golang. The secret is hex encoded first
// because sssa trims trailing NUL bytes on reconstruction.
func splitPrime(secret []byte, threshold, total int) ([]Share, error) {
	shareStrings, err := sssa.Create(threshold, total, hex.EncodeToString(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to split secret: %w", crustyerr.ErrSharing, err)
	}

	shares := make([]Share, len(shareStrings))
	for i, shareStr := range shareStrings {
		shares[i] = Share{
			Index: byte(i + 1),
			Value: []byte(shareStr),
		}
	}
	return shares, nil
}

func combinePrime(shares []Share) ([]byte, error) {
	shareStrings := make([]string, len(shares))
	for i, share := range shares {
		if !sssa.IsValidShare(string(share.Value)) {
			return nil, fmt.Errorf("%w: share %d is not a valid prime-field share", crustyerr.ErrSharing, i)
		}
		shareStrings[i] = string(share.Value)
	}

	secretHex, err := sssa.Combine(shareStrings)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to combine shares: %w", crustyerr.ErrSharing, err)
	}

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("%w: reconstructed secret is not valid: %w", crustyerr.ErrSharing, err)
	}
	return secret, nil
}
