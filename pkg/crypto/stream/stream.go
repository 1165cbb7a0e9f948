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

// Package stream encrypts arbitrarily large inputs in fixed-size chunks with
// AES-256-GCM, so neither side holds more than one chunk in memory.
//
// Layout:
//
//	header: magic "CRS1"(4) || chunk_size(4) || nonce_prefix(8)
//	chunk:  info(4) || ciphertext+tag
//
// info is the chunk's plaintext length with the high bit set on the final
// chunk. Chunk i is sealed with nonce nonce_prefix || i (big-endian) and
// associated data header || info, so every chunk has a distinct nonce and
// reordering, truncation or dropping the final marker fails authentication.
// A stream always ends with exactly one final chunk, which may be empty.
package stream

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

const (
	// Magic identifies a chunked stream.
	Magic = "CRS1"

	// HeaderSize is the length of the stream header.
	HeaderSize = 16

	// DefaultChunkSize is used when no chunk size is configured.
	DefaultChunkSize = 64 * 1024

	// MaxChunkSize bounds the memory a reader must allocate for one chunk.
	MaxChunkSize = 16 * 1024 * 1024

	prefixSize = 8
	infoSize   = 4
	finalFlag  = uint32(1) << 31
)

var (
	// ErrInvalidHeader is returned when the input does not start with a stream header.
	ErrInvalidHeader = fmt.Errorf("%w: stream: invalid header", crustyerr.ErrDecryption)

	// ErrTruncated is returned when the input ends before the final chunk.
	ErrTruncated = fmt.Errorf("%w: stream: truncated", crustyerr.ErrDecryption)

	// ErrTrailingData is returned when bytes follow the final chunk.
	ErrTrailingData = fmt.Errorf("%w: stream: data after final chunk", crustyerr.ErrDecryption)
)

// Option configures Encrypt and Decrypt.
type Option func(*options)

type options struct {
	chunkSize int
	random    io.Reader
	progress  func(done int64)
}

// WithChunkSize sets the plaintext chunk size used by Encrypt. Decrypt reads
// the chunk size from the header.
func WithChunkSize(size int) Option {
	return func(o *options) {
		o.chunkSize = size
	}
}

// WithRandom replaces crypto/rand as the source of the nonce prefix.
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		o.random = r
	}
}

// WithProgress registers a callback invoked after every chunk with the total
// number of plaintext bytes processed so far.
func WithProgress(fn func(done int64)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

func newOptions(opts []Option) *options {
	o := &options{chunkSize: DefaultChunkSize, random: rand.Reader}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Encrypt reads r to EOF and writes the chunked ciphertext to w. It returns
// the number of plaintext bytes consumed. ctx is checked between chunks.
func Encrypt(ctx context.Context, r io.Reader, w io.Writer, key *symkey.Key, opts ...Option) (int64, error) {
	o := newOptions(opts)
	if o.chunkSize <= 0 || o.chunkSize > MaxChunkSize {
		return 0, fmt.Errorf("%w: stream: chunk size %d out of range (1..%d)", crustyerr.ErrEncryption, o.chunkSize, MaxChunkSize)
	}

	gcm, err := newGCM(key, crustyerr.ErrEncryption)
	if err != nil {
		return 0, err
	}

	header := make([]byte, HeaderSize)
	copy(header, Magic)
	binary.BigEndian.PutUint32(header[4:8], uint32(o.chunkSize))
	if _, err := io.ReadFull(o.random, header[8:]); err != nil {
		return 0, fmt.Errorf("%w: stream: failed to generate nonce prefix: %w", crustyerr.ErrEncryption, err)
	}
	if _, err := w.Write(header); err != nil {
		return 0, fmt.Errorf("%w: stream: write header: %w", crustyerr.ErrIO, err)
	}

	buf := make([]byte, o.chunkSize)
	out := make([]byte, 0, infoSize+o.chunkSize+gcm.Overhead())
	nonce := make([]byte, gcm.NonceSize())
	copy(nonce, header[8:])
	ad := make([]byte, HeaderSize+infoSize)
	copy(ad, header)

	var total int64
	for i := uint32(0); ; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, rerr := io.ReadFull(r, buf)
		final := false
		switch {
		case rerr == nil:
		case errors.Is(rerr, io.EOF), errors.Is(rerr, io.ErrUnexpectedEOF):
			final = true
		default:
			return total, fmt.Errorf("%w: stream: read chunk %d: %w", crustyerr.ErrIO, i, rerr)
		}
		if !final && i == math.MaxUint32 {
			return total, fmt.Errorf("%w: stream: chunk counter exhausted", crustyerr.ErrEncryption)
		}

		info := uint32(n)
		if final {
			info |= finalFlag
		}
		binary.BigEndian.PutUint32(ad[HeaderSize:], info)
		binary.BigEndian.PutUint32(nonce[prefixSize:], i)

		out = append(out[:0], ad[HeaderSize:]...)
		out = gcm.Seal(out, nonce, buf[:n], ad)
		if _, err := w.Write(out); err != nil {
			return total, fmt.Errorf("%w: stream: write chunk %d: %w", crustyerr.ErrIO, i, err)
		}

		total += int64(n)
		if o.progress != nil {
			o.progress(total)
		}
		if final {
			return total, nil
		}
	}
}

// Decrypt reads a chunked stream from r and writes the plaintext to w as each
// chunk authenticates. On error w may already hold a prefix of the plaintext;
// callers writing to files must discard the output.
func Decrypt(ctx context.Context, r io.Reader, w io.Writer, key *symkey.Key, opts ...Option) (int64, error) {
	o := newOptions(opts)

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, ErrInvalidHeader
	}
	if !bytes.Equal(header[:4], []byte(Magic)) {
		return 0, ErrInvalidHeader
	}
	chunkSize := binary.BigEndian.Uint32(header[4:8])
	if chunkSize == 0 || chunkSize > MaxChunkSize {
		return 0, fmt.Errorf("%w: chunk size %d", ErrInvalidHeader, chunkSize)
	}

	gcm, err := newGCM(key, crustyerr.ErrDecryption)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, int(chunkSize)+gcm.Overhead())
	nonce := make([]byte, gcm.NonceSize())
	copy(nonce, header[8:])
	ad := make([]byte, HeaderSize+infoSize)
	copy(ad, header)

	var total int64
	for i := uint32(0); ; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		if _, err := io.ReadFull(r, ad[HeaderSize:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return total, ErrTruncated
			}
			return total, fmt.Errorf("%w: stream: read chunk %d: %w", crustyerr.ErrIO, i, err)
		}

		info := binary.BigEndian.Uint32(ad[HeaderSize:])
		final := info&finalFlag != 0
		ptlen := info &^ finalFlag
		switch {
		case ptlen > chunkSize:
			return total, fmt.Errorf("%w: stream: chunk %d too large (%d)", crustyerr.ErrDecryption, i, ptlen)
		case !final && ptlen != chunkSize:
			return total, fmt.Errorf("%w: stream: short chunk %d without final marker", crustyerr.ErrDecryption, i)
		}

		ct := buf[:int(ptlen)+gcm.Overhead()]
		if _, err := io.ReadFull(r, ct); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return total, ErrTruncated
			}
			return total, fmt.Errorf("%w: stream: read chunk %d: %w", crustyerr.ErrIO, i, err)
		}

		binary.BigEndian.PutUint32(nonce[prefixSize:], i)
		pt, err := gcm.Open(ct[:0], nonce, ct, ad)
		if err != nil {
			return total, fmt.Errorf("stream: chunk %d: %w", i, crustyerr.ErrAuthentication)
		}

		if len(pt) > 0 {
			if _, err := w.Write(pt); err != nil {
				return total, fmt.Errorf("%w: stream: write chunk %d: %w", crustyerr.ErrIO, i, err)
			}
		}

		total += int64(len(pt))
		if o.progress != nil {
			o.progress(total)
		}

		if final {
			var extra [1]byte
			if n, _ := io.ReadFull(r, extra[:]); n > 0 {
				return total, ErrTrailingData
			}
			return total, nil
		}
		if i == math.MaxUint32 {
			return total, fmt.Errorf("%w: stream: chunk counter exhausted", crustyerr.ErrDecryption)
		}
	}
}

func newGCM(key *symkey.Key, kind error) (cipher.AEAD, error) {
	raw := key.Bytes()
	if raw == nil {
		return nil, fmt.Errorf("%w: %w: key has been destroyed", kind, crustyerr.ErrKey)
	}
	defer symkey.Wipe(raw)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: stream: %w", kind, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: stream: %w", kind, err)
	}
	return gcm, nil
}
