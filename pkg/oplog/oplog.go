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

// Package oplog records the outcome of file operations. Components report an
// Entry to an Observer; the JSON-lines File observer keeps a persistent
// history and Memory keeps one for display and tests.
package oplog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation names used in entries.
const (
	OpEncrypt        = "Encrypt"
	OpDecrypt        = "Decrypt"
	OpEncryptStream  = "Encrypt Stream"
	OpDecryptStream  = "Decrypt Stream"
	OpGenerateKey    = "Generate Key"
	OpLoadKey        = "Load Key"
	OpSplitKey       = "Split Key"
	OpReconstructKey = "Reconstruct Key"
)

// Entry is a single operation record.
type Entry struct {
	// ID uniquely identifies the entry
	ID string `json:"id"`

	// Timestamp is when the operation finished
	Timestamp time.Time `json:"timestamp"`

	// Operation is the kind of operation
	Operation string `json:"operation"`

	// FilePath is the file that was processed
	FilePath string `json:"file_path"`

	// Success reports whether the operation succeeded
	Success bool `json:"success"`

	// Message describes the result or the error
	Message string `json:"message"`
}

// NewEntry creates an entry stamped with a fresh ID and the current time.
func NewEntry(operation, filePath string, success bool, message string) *Entry {
	return &Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Operation: operation,
		FilePath:  filePath,
		Success:   success,
		Message:   message,
	}
}

// Success creates an entry for a successful operation.
func Success(operation, filePath, message string) *Entry {
	return NewEntry(operation, filePath, true, message)
}

// Failure creates an entry for a failed operation.
func Failure(operation, filePath string, err error) *Entry {
	return NewEntry(operation, filePath, false, err.Error())
}

// Observer receives operation entries.
type Observer interface {
	Record(ctx context.Context, entry *Entry) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, entry *Entry) error

// Record implements Observer.
func (f ObserverFunc) Record(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

type noop struct{}

func (noop) Record(context.Context, *Entry) error { return nil }

// Noop returns an observer that drops every entry.
func Noop() Observer {
	return noop{}
}

// OrNoop returns o, or Noop when o is nil.
func OrNoop(o Observer) Observer {
	if o == nil {
		return Noop()
	}
	return o
}

// Multi fans each entry out to every observer and joins their errors.
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(ctx context.Context, entry *Entry) error {
		var errs []error
		for _, o := range observers {
			if err := o.Record(ctx, entry); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

func validateEntry(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("oplog: entry cannot be nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return nil
}
