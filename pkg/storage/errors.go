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

package storage

import (
	"fmt"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

var (
	// ErrClosed is returned when attempting to use a closed storage.
	ErrClosed = fmt.Errorf("%w: storage: closed", crustyerr.ErrStorage)

	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = fmt.Errorf("%w: storage: not found", crustyerr.ErrStorage)

	// ErrAlreadyExists is returned when an exclusive write finds an existing key.
	ErrAlreadyExists = fmt.Errorf("%w: storage: already exists", crustyerr.ErrStorage)

	// ErrInvalidKey is returned for empty keys or keys that escape the root.
	ErrInvalidKey = fmt.Errorf("%w: storage: invalid key", crustyerr.ErrStorage)
)
