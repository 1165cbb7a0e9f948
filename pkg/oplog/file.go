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

package oplog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

// File appends entries to a JSON-lines log and keeps the entries recorded
// through it in memory.
type File struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	memory *Memory
}

// OpenFile opens path for appending, creating it and its parent directory.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: oplog: failed to create log directory: %w", crustyerr.ErrIO, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: oplog: failed to open log: %w", crustyerr.ErrIO, err)
	}
	return &File{
		path:   path,
		file:   f,
		memory: NewMemory(),
	}, nil
}

// Path returns the log file path.
func (l *File) Path() string {
	return l.path
}

// Record implements Observer.
func (l *File) Record(ctx context.Context, entry *Entry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("oplog: failed to encode entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("%w: oplog: log is closed", crustyerr.ErrIO)
	}
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("%w: oplog: failed to write entry: %w", crustyerr.ErrIO, err)
	}
	return l.memory.Record(ctx, entry)
}

// Entries returns the entries recorded since the log was opened.
func (l *File) Entries() []Entry {
	return l.memory.Entries()
}

// Close closes the log file.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadFile parses every entry in a JSON-lines log.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: oplog: failed to open log: %w", crustyerr.ErrIO, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%w: oplog: line %d: %w", crustyerr.ErrEncoding, line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: oplog: failed to read log: %w", crustyerr.ErrIO, err)
	}
	return entries, nil
}
