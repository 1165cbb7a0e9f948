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

package filecodec

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

const (
	// EncryptedExt is appended to encrypted file names.
	EncryptedExt = ".encrypted"

	// DecryptedExt is appended to decrypted file names that do not end in
	// EncryptedExt.
	DecryptedExt = ".decrypted"
)

// BatchProgressFunc receives the index of the file being processed and its
// completed fraction.
type BatchProgressFunc func(index int, fraction float64)

// Result is the outcome of one file in a batch.
type Result struct {
	// Source is the input path
	Source string

	// Destination is the output path
	Destination string

	// Encrypt is true for encryption results
	Encrypt bool

	// Email is the recipient, for recipient batches
	Email string

	// Err is nil on success
	Err error
}

// OK reports whether the file was processed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Message renders the result for display, for example
// "Successfully encrypted: a.txt" or "Failed to decrypt a.txt.encrypted:
// Wrong encryption key used. Please try a different key."
func (r Result) Message() string {
	verb := "decrypt"
	if r.Encrypt {
		verb = "encrypt"
	}
	if r.Err != nil {
		return fmt.Sprintf("Failed to %s %s: %s", verb, r.Source, crustyerr.UserMessage(r.Err))
	}
	return fmt.Sprintf("Successfully %sed: %s", verb, r.Source)
}

// Failed returns the failed results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// EncryptedName returns the destination name for encrypting src.
func EncryptedName(src string) string {
	return filepath.Base(src) + EncryptedExt
}

// DecryptedName returns the destination name for decrypting src: the name
// without EncryptedExt, or with DecryptedExt appended.
func DecryptedName(src string) string {
	base := filepath.Base(src)
	if trimmed := strings.TrimSuffix(base, EncryptedExt); trimmed != base && trimmed != "" {
		return trimmed
	}
	return base + DecryptedExt
}

// EncryptFiles encrypts every source into destDir.
func (c *Codec) EncryptFiles(ctx context.Context, srcs []string, destDir string, key *symkey.Key, progress BatchProgressFunc) []Result {
	return c.batch(ctx, srcs, destDir, true, progress, func(ctx context.Context, src, dst string, p ProgressFunc) (string, error) {
		return "", c.EncryptFile(ctx, src, dst, key, p)
	})
}

// DecryptFiles decrypts every source into destDir.
func (c *Codec) DecryptFiles(ctx context.Context, srcs []string, destDir string, key *symkey.Key, progress BatchProgressFunc) []Result {
	return c.batch(ctx, srcs, destDir, false, progress, func(ctx context.Context, src, dst string, p ProgressFunc) (string, error) {
		return "", c.DecryptFile(ctx, src, dst, key, p)
	})
}

// EncryptFilesForRecipient encrypts every source for email into destDir.
func (c *Codec) EncryptFilesForRecipient(ctx context.Context, srcs []string, destDir string, master *symkey.Key, email string, progress BatchProgressFunc) []Result {
	return c.batch(ctx, srcs, destDir, true, progress, func(ctx context.Context, src, dst string, p ProgressFunc) (string, error) {
		return email, c.EncryptFileForRecipient(ctx, src, dst, master, email, p)
	})
}

// DecryptFilesWithRecipient decrypts every recipient envelope into destDir.
// Each result carries the recipient found in its file.
func (c *Codec) DecryptFilesWithRecipient(ctx context.Context, srcs []string, destDir string, master *symkey.Key, progress BatchProgressFunc) []Result {
	return c.batch(ctx, srcs, destDir, false, progress, func(ctx context.Context, src, dst string, p ProgressFunc) (string, error) {
		return c.DecryptFileWithRecipient(ctx, src, dst, master, p)
	})
}

type fileFunc func(ctx context.Context, src, dst string, progress ProgressFunc) (email string, err error)

// batch runs fn for every source in order. A failure is recorded in its
// result and does not stop the batch; cancellation fails the remaining files.
func (c *Codec) batch(ctx context.Context, srcs []string, destDir string, encrypt bool, progress BatchProgressFunc, fn fileFunc) []Result {
	results := make([]Result, len(srcs))
	for i, src := range srcs {
		name := DecryptedName(src)
		if encrypt {
			name = EncryptedName(src)
		}
		r := Result{
			Source:      src,
			Destination: filepath.Join(destDir, name),
			Encrypt:     encrypt,
		}

		var p ProgressFunc
		if progress != nil {
			idx := i
			p = func(fraction float64) { progress(idx, fraction) }
		}
		r.Email, r.Err = fn(ctx, src, r.Destination, p)
		results[i] = r
	}
	return results
}
