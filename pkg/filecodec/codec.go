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

// Package filecodec encrypts and decrypts files on disk. Single-file
// operations read the whole source, seal or open it as one envelope and
// write the destination; streaming variants process chunk by chunk. Batches
// apply a single-file operation to many sources and report every outcome.
//
// A destination is never overwritten: an existing destination fails the
// operation before the source is read, and a destination created by a
// failing operation is removed.
package filecodec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/aead"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/stream"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/logging"
	"github.com/jeremyhahn/go-crusty/pkg/metrics"
	"github.com/jeremyhahn/go-crusty/pkg/oplog"
)

// ProgressFunc receives the completed fraction of a single-file operation,
// between 0 and 1.
type ProgressFunc func(fraction float64)

// DefaultBackendLabel is the backend label used for metrics.
const DefaultBackendLabel = "local"

// Option configures a Codec.
type Option func(*Codec)

// WithAEAD replaces the default envelope codec, for example to enable nonce
// tracking.
func WithAEAD(c *aead.Codec) Option {
	return func(fc *Codec) {
		fc.aead = c
	}
}

// WithObserver sets the operation log observer.
func WithObserver(o oplog.Observer) Option {
	return func(fc *Codec) {
		fc.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(fc *Codec) {
		fc.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(fc *Codec) {
		fc.metrics = r
	}
}

// WithBackendLabel sets the backend label attached to metrics samples.
func WithBackendLabel(label string) Option {
	return func(fc *Codec) {
		fc.backend = label
	}
}

// WithChunkSize sets the plaintext chunk size for streaming encryption.
func WithChunkSize(size int) Option {
	return func(fc *Codec) {
		fc.chunkSize = size
	}
}

// Codec performs file operations. It is safe for concurrent use when its
// collaborators are.
type Codec struct {
	aead      *aead.Codec
	observer  oplog.Observer
	logger    *logging.Logger
	metrics   metrics.Recorder
	backend   string
	chunkSize int

	// create opens a new destination file.
	create func(dst string) (io.WriteCloser, error)
}

// New creates a file codec.
func New(opts ...Option) *Codec {
	c := &Codec{
		backend:   DefaultBackendLabel,
		chunkSize: stream.DefaultChunkSize,
		create:    createExclusive,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.aead == nil {
		c.aead = aead.NewCodec()
	}
	c.observer = oplog.OrNoop(c.observer)
	c.logger = logging.OrDiscard(c.logger).With("component", "filecodec")
	c.metrics = metrics.OrNoop(c.metrics)
	return c
}

// EncryptFile encrypts src into a new file dst.
func (c *Codec) EncryptFile(ctx context.Context, src, dst string, key *symkey.Key, progress ProgressFunc) error {
	start := time.Now()
	n, err := c.transform(ctx, src, dst, progress, true, func(data []byte) ([]byte, error) {
		return c.aead.Encrypt(data, key)
	})
	c.finish(ctx, oplog.OpEncrypt, metrics.OpEncrypt, src, dst, n, start, err)
	return err
}

// DecryptFile decrypts src into a new file dst.
func (c *Codec) DecryptFile(ctx context.Context, src, dst string, key *symkey.Key, progress ProgressFunc) error {
	start := time.Now()
	n, err := c.transform(ctx, src, dst, progress, false, func(data []byte) ([]byte, error) {
		return c.aead.Decrypt(data, key)
	})
	c.finish(ctx, oplog.OpDecrypt, metrics.OpDecrypt, src, dst, n, start, err)
	return err
}

// EncryptFileForRecipient encrypts src for email under a key derived from
// master.
func (c *Codec) EncryptFileForRecipient(ctx context.Context, src, dst string, master *symkey.Key, email string, progress ProgressFunc) error {
	start := time.Now()
	n, err := c.transform(ctx, src, dst, progress, true, func(data []byte) ([]byte, error) {
		return c.aead.EncryptForRecipient(data, master, email)
	})
	c.finish(ctx, oplog.OpEncrypt, metrics.OpEncrypt, src, dst, n, start, err)
	return err
}

// DecryptFileWithRecipient decrypts a recipient envelope and returns the
// recipient email embedded in it.
func (c *Codec) DecryptFileWithRecipient(ctx context.Context, src, dst string, master *symkey.Key, progress ProgressFunc) (string, error) {
	start := time.Now()
	var email string
	n, err := c.transform(ctx, src, dst, progress, false, func(data []byte) ([]byte, error) {
		e, plaintext, err := c.aead.DecryptWithRecipient(data, master)
		email = e
		return plaintext, err
	})
	c.finish(ctx, oplog.OpDecrypt, metrics.OpDecrypt, src, dst, n, start, err)
	if err != nil {
		return "", err
	}
	return email, nil
}

// transform runs one whole-buffer file operation and returns the number of
// plaintext bytes processed. sealing selects which side of fn holds
// plaintext so it can be wiped.
func (c *Codec) transform(ctx context.Context, src, dst string, progress ProgressFunc, sealing bool, fn func([]byte) ([]byte, error)) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkDestination(dst); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read %s: %w", crustyerr.ErrIO, src, err)
	}
	if sealing {
		defer symkey.Wipe(data)
	}
	report(progress, 0.5)

	out, err := fn(data)
	if err != nil {
		return 0, err
	}
	if !sealing {
		defer symkey.Wipe(out)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := c.writeExclusive(dst, out); err != nil {
		return 0, err
	}
	report(progress, 1.0)

	if sealing {
		return int64(len(data)), nil
	}
	return int64(len(out)), nil
}

// finish reports the outcome of an operation to the observer, the log and
// the metrics recorder.
func (c *Codec) finish(ctx context.Context, op, metricOp, src, dst string, n int64, start time.Time, err error) {
	metrics.Observe(c.metrics, metricOp, c.backend, start, err)
	c.metrics.RecordBytes(metricOp, c.backend, n)

	var entry *oplog.Entry
	if err != nil {
		c.logger.Warn("file operation failed", "operation", op, "source", src, "error", err)
		entry = oplog.NewEntry(op, src, false, crustyerr.UserMessage(err))
	} else {
		c.logger.Debug("file operation completed", "operation", op, "source", src, "destination", dst, "bytes", n)
		entry = oplog.Success(op, src, fmt.Sprintf("%s -> %s", src, dst))
	}
	if rerr := c.observer.Record(ctx, entry); rerr != nil {
		c.logger.Warn("failed to record operation", "error", rerr)
	}
}

func report(progress ProgressFunc, fraction float64) {
	if progress != nil {
		progress(fraction)
	}
}

func destinationExists(dst string) error {
	return fmt.Errorf("%w: %s: %w", crustyerr.ErrDestinationExists, dst, fs.ErrExist)
}

// checkDestination fails if dst already exists.
func checkDestination(dst string) error {
	_, err := os.Lstat(dst)
	if err == nil {
		return destinationExists(dst)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: failed to check %s: %w", crustyerr.ErrIO, dst, err)
	}
	return nil
}

// createExclusive creates dst, failing if it exists.
func createExclusive(dst string) (io.WriteCloser, error) {
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, destinationExists(dst)
		}
		return nil, fmt.Errorf("%w: failed to create %s: %w", crustyerr.ErrIO, dst, err)
	}
	return f, nil
}

// writeExclusive writes data to a new file dst and removes it on failure.
func (c *Codec) writeExclusive(dst string, data []byte) error {
	f, err := c.create(dst)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("%w: failed to write %s: %w", crustyerr.ErrIO, dst, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("%w: failed to close %s: %w", crustyerr.ErrIO, dst, err)
	}
	return nil
}
