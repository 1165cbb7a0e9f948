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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/stream"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/metrics"
	"github.com/jeremyhahn/go-crusty/pkg/oplog"
)

// EncryptFileStream encrypts src into dst in the chunked stream format.
// Progress is reported after every chunk.
func (c *Codec) EncryptFileStream(ctx context.Context, src, dst string, key *symkey.Key, progress ProgressFunc) error {
	start := time.Now()
	n, err := c.streamFile(ctx, src, dst, progress, 0, func(r io.Reader, w io.Writer, opts ...stream.Option) (int64, error) {
		opts = append(opts, stream.WithChunkSize(c.chunkSize))
		return stream.Encrypt(ctx, r, w, key, opts...)
	})
	c.finish(ctx, oplog.OpEncryptStream, metrics.OpEncryptStream, src, dst, n, start, err)
	return err
}

// DecryptFileStream decrypts a chunked stream file src into dst.
func (c *Codec) DecryptFileStream(ctx context.Context, src, dst string, key *symkey.Key, progress ProgressFunc) error {
	start := time.Now()
	n, err := c.streamFile(ctx, src, dst, progress, stream.HeaderSize, func(r io.Reader, w io.Writer, opts ...stream.Option) (int64, error) {
		return stream.Decrypt(ctx, r, w, key, opts...)
	})
	c.finish(ctx, oplog.OpDecryptStream, metrics.OpDecryptStream, src, dst, n, start, err)
	return err
}

type streamFunc func(r io.Reader, w io.Writer, opts ...stream.Option) (int64, error)

// streamFile wires src and dst to fn. overhead is subtracted from the source
// size when estimating progress.
func (c *Codec) streamFile(ctx context.Context, src, dst string, progress ProgressFunc, overhead int64, fn streamFunc) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkDestination(dst); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to open %s: %w", crustyerr.ErrIO, src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to stat %s: %w", crustyerr.ErrIO, src, err)
	}
	total := info.Size() - overhead

	out, err := c.create(dst)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(out)

	n, err := fn(bufio.NewReader(in), bw, stream.WithProgress(func(done int64) {
		if total > 0 && done < total {
			report(progress, float64(done)/float64(total))
		}
	}))
	if err == nil {
		if ferr := bw.Flush(); ferr != nil {
			err = fmt.Errorf("%w: failed to write %s: %w", crustyerr.ErrIO, dst, ferr)
		}
	}
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: failed to close %s: %w", crustyerr.ErrIO, dst, cerr)
	}
	if err != nil {
		os.Remove(dst)
		return 0, err
	}

	report(progress, 1.0)
	return n, nil
}
