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

package backend

import (
	"context"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/aead"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	"github.com/jeremyhahn/go-crusty/pkg/filecodec"
)

// Local performs every operation in process.
type Local struct {
	aead  *aead.Codec
	files *filecodec.Codec
}

var (
	_ Backend  = (*Local)(nil)
	_ Streamer = (*Local)(nil)
)

// NewLocal creates a local backend. codec may be nil.
func NewLocal(codec *aead.Codec, fileOpts ...filecodec.Option) *Local {
	if codec == nil {
		codec = aead.NewCodec()
	}
	opts := append([]filecodec.Option{filecodec.WithBackendLabel(string(TypeLocal))}, fileOpts...)
	opts = append(opts, filecodec.WithAEAD(codec))
	return &Local{
		aead:  codec,
		files: filecodec.New(opts...),
	}
}

// Type implements Backend.
func (l *Local) Type() Type {
	return TypeLocal
}

// EncryptData implements Backend.
func (l *Local) EncryptData(plaintext []byte, key *symkey.Key) ([]byte, error) {
	return l.aead.Encrypt(plaintext, key)
}

// DecryptData implements Backend.
func (l *Local) DecryptData(envelope []byte, key *symkey.Key) ([]byte, error) {
	return l.aead.Decrypt(envelope, key)
}

// EncryptDataForRecipient implements Backend.
func (l *Local) EncryptDataForRecipient(plaintext []byte, master *symkey.Key, email string) ([]byte, error) {
	return l.aead.EncryptForRecipient(plaintext, master, email)
}

// DecryptDataWithRecipient implements Backend.
func (l *Local) DecryptDataWithRecipient(envelope []byte, master *symkey.Key) (string, []byte, error) {
	return l.aead.DecryptWithRecipient(envelope, master)
}

// EncryptFile implements Backend.
func (l *Local) EncryptFile(ctx context.Context, src, dst string, key *symkey.Key, progress filecodec.ProgressFunc) error {
	return l.files.EncryptFile(ctx, src, dst, key, progress)
}

// DecryptFile implements Backend.
func (l *Local) DecryptFile(ctx context.Context, src, dst string, key *symkey.Key, progress filecodec.ProgressFunc) error {
	return l.files.DecryptFile(ctx, src, dst, key, progress)
}

// EncryptFileForRecipient implements Backend.
func (l *Local) EncryptFileForRecipient(ctx context.Context, src, dst string, master *symkey.Key, email string, progress filecodec.ProgressFunc) error {
	return l.files.EncryptFileForRecipient(ctx, src, dst, master, email, progress)
}

// DecryptFileWithRecipient implements Backend.
func (l *Local) DecryptFileWithRecipient(ctx context.Context, src, dst string, master *symkey.Key, progress filecodec.ProgressFunc) (string, error) {
	return l.files.DecryptFileWithRecipient(ctx, src, dst, master, progress)
}

// EncryptFiles implements Backend.
func (l *Local) EncryptFiles(ctx context.Context, srcs []string, destDir string, key *symkey.Key, progress filecodec.BatchProgressFunc) ([]filecodec.Result, error) {
	return l.files.EncryptFiles(ctx, srcs, destDir, key, progress), nil
}

// DecryptFiles implements Backend.
func (l *Local) DecryptFiles(ctx context.Context, srcs []string, destDir string, key *symkey.Key, progress filecodec.BatchProgressFunc) ([]filecodec.Result, error) {
	return l.files.DecryptFiles(ctx, srcs, destDir, key, progress), nil
}

// EncryptFilesForRecipient implements Backend.
func (l *Local) EncryptFilesForRecipient(ctx context.Context, srcs []string, destDir string, master *symkey.Key, email string, progress filecodec.BatchProgressFunc) ([]filecodec.Result, error) {
	return l.files.EncryptFilesForRecipient(ctx, srcs, destDir, master, email, progress), nil
}

// DecryptFilesWithRecipient implements Backend.
func (l *Local) DecryptFilesWithRecipient(ctx context.Context, srcs []string, destDir string, master *symkey.Key, progress filecodec.BatchProgressFunc) ([]filecodec.Result, error) {
	return l.files.DecryptFilesWithRecipient(ctx, srcs, destDir, master, progress), nil
}

// EncryptFileStream implements Streamer.
func (l *Local) EncryptFileStream(ctx context.Context, src, dst string, key *symkey.Key, progress filecodec.ProgressFunc) error {
	return l.files.EncryptFileStream(ctx, src, dst, key, progress)
}

// DecryptFileStream implements Streamer.
func (l *Local) DecryptFileStream(ctx context.Context, src, dst string, key *symkey.Key, progress filecodec.ProgressFunc) error {
	return l.files.DecryptFileStream(ctx, src, dst, key, progress)
}
