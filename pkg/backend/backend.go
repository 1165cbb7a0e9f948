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

// Package backend selects where encryption happens. Local performs every
// operation in process; Embedded stands in for a hardware device and fails
// every cryptographic operation with ErrNotImplemented.
package backend

import (
	"context"
	"fmt"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/aead"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/filecodec"
)

// Type identifies a backend implementation.
type Type string

const (
	// TypeLocal encrypts in process.
	TypeLocal Type = "local"

	// TypeEmbedded delegates to an embedded device.
	TypeEmbedded Type = "embedded"
)

// ParseType maps a configuration name to a Type. The empty string selects
// TypeLocal.
func ParseType(name string) (Type, error) {
	switch Type(name) {
	case "", TypeLocal:
		return TypeLocal, nil
	case TypeEmbedded:
		return TypeEmbedded, nil
	default:
		return "", fmt.Errorf("unknown backend type %q", name)
	}
}

// Backend is the set of data, file and batch operations every
// implementation provides.
type Backend interface {
	// Type returns the backend kind.
	Type() Type

	EncryptData(plaintext []byte, key *symkey.Key) ([]byte, error)
	DecryptData(envelope []byte, key *symkey.Key) ([]byte, error)
	EncryptDataForRecipient(plaintext []byte, master *symkey.Key, email string) ([]byte, error)
	DecryptDataWithRecipient(envelope []byte, master *symkey.Key) (email string, plaintext []byte, err error)

	EncryptFile(ctx context.Context, src, dst string, key *symkey.Key, progress filecodec.ProgressFunc) error
	DecryptFile(ctx context.Context, src, dst string, key *symkey.Key, progress filecodec.ProgressFunc) error
	EncryptFileForRecipient(ctx context.Context, src, dst string, master *symkey.Key, email string, progress filecodec.ProgressFunc) error
	DecryptFileWithRecipient(ctx context.Context, src, dst string, master *symkey.Key, progress filecodec.ProgressFunc) (email string, err error)

	// Batch operations return one result per source. The error is non-nil
	// only when the backend cannot run the batch at all.
	EncryptFiles(ctx context.Context, srcs []string, destDir string, key *symkey.Key, progress filecodec.BatchProgressFunc) ([]filecodec.Result, error)
	DecryptFiles(ctx context.Context, srcs []string, destDir string, key *symkey.Key, progress filecodec.BatchProgressFunc) ([]filecodec.Result, error)
	EncryptFilesForRecipient(ctx context.Context, srcs []string, destDir string, master *symkey.Key, email string, progress filecodec.BatchProgressFunc) ([]filecodec.Result, error)
	DecryptFilesWithRecipient(ctx context.Context, srcs []string, destDir string, master *symkey.Key, progress filecodec.BatchProgressFunc) ([]filecodec.Result, error)
}

// Streamer is implemented by backends that support the chunked stream
// format.
type Streamer interface {
	EncryptFileStream(ctx context.Context, src, dst string, key *symkey.Key, progress filecodec.ProgressFunc) error
	DecryptFileStream(ctx context.Context, src, dst string, key *symkey.Key, progress filecodec.ProgressFunc) error
}

// Options selects and configures a backend.
type Options struct {
	// Type selects the implementation
	Type Type

	// Embedded configures TypeEmbedded
	Embedded *Config

	// AEAD is the envelope codec used by TypeLocal; nil selects a default
	AEAD *aead.Codec

	// FileOptions configure the TypeLocal file codec
	FileOptions []filecodec.Option
}

// New creates the backend selected by opts.
func New(opts *Options) (Backend, error) {
	if opts == nil {
		opts = &Options{}
	}
	switch opts.Type {
	case "", TypeLocal:
		return NewLocal(opts.AEAD, opts.FileOptions...), nil
	case TypeEmbedded:
		if opts.Embedded == nil {
			return nil, fmt.Errorf("%w: embedded backend requires a configuration", crustyerr.ErrEncryption)
		}
		return NewEmbedded(opts.Embedded)
	default:
		return nil, fmt.Errorf("unknown backend type %q", opts.Type)
	}
}
