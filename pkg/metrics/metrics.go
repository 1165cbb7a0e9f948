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

// Package metrics provides Prometheus instrumentation for go-crusty operations.
// Components record through the Recorder interface; Collector implements it on
// a private registry that can be gathered or written to a textfile.
package metrics

import (
	"errors"
	"time"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

const (
	// Namespace is the Prometheus namespace for all crusty metrics
	Namespace = "crusty"

	// Label names
	LabelOperation = "operation"
	LabelBackend   = "backend"
	LabelStatus    = "status"
	LabelErrorType = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpEncrypt       = "encrypt"
	OpDecrypt       = "decrypt"
	OpEncryptStream = "encrypt_stream"
	OpDecryptStream = "decrypt_stream"
	OpSplit         = "split"
	OpReconstruct   = "reconstruct"
)

// Recorder receives operation samples.
type Recorder interface {
	// RecordOperation counts an operation and observes its duration.
	RecordOperation(operation, backend, status string, duration time.Duration)

	// RecordBytes adds to the number of plaintext bytes processed.
	RecordBytes(operation, backend string, n int64)

	// RecordError counts a failed operation by error type.
	RecordError(operation, backend, errorType string)
}

type noop struct{}

func (noop) RecordOperation(string, string, string, time.Duration) {}
func (noop) RecordBytes(string, string, int64)                     {}
func (noop) RecordError(string, string, string)                    {}

// Noop returns a recorder that drops every sample.
func Noop() Recorder {
	return noop{}
}

// OrNoop returns r, or Noop when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return Noop()
	}
	return r
}

// Observe records the outcome of an operation that started at start.
// Failures are also counted under their error type.
func Observe(r Recorder, operation, backend string, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
		r.RecordError(operation, backend, ErrorType(err))
	}
	r.RecordOperation(operation, backend, status, time.Since(start))
}

// ErrorType maps an error to a low-cardinality label value.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, crustyerr.ErrAuthentication):
		return "authentication"
	case errors.Is(err, crustyerr.ErrDestinationExists):
		return "destination_exists"
	case errors.Is(err, crustyerr.ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, crustyerr.ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, crustyerr.ErrChecksum):
		return "checksum"
	case errors.Is(err, crustyerr.ErrIO):
		return "io"
	case errors.Is(err, crustyerr.ErrEncryption):
		return "encryption"
	case errors.Is(err, crustyerr.ErrDecryption):
		return "decryption"
	case errors.Is(err, crustyerr.ErrKey):
		return "key"
	case errors.Is(err, crustyerr.ErrSharing):
		return "sharing"
	case errors.Is(err, crustyerr.ErrEncoding):
		return "encoding"
	case errors.Is(err, crustyerr.ErrStorage):
		return "storage"
	case errors.Is(err, crustyerr.ErrTransfer):
		return "transfer"
	default:
		return "other"
	}
}
