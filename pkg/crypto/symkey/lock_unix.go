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

//go:build linux || darwin || freebsd || netbsd || openbsd

package symkey

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mlock works on whole pages and several keys can share one, so locked pages
// are reference counted and a page is unlocked with its last key.
var (
	lockMu   sync.Mutex
	locked   = map[uintptr]int{}
	pageSize = uintptr(unix.Getpagesize())
)

type pageSpan struct {
	page uintptr
	b    []byte
}

// pageSpans splits b at page boundaries.
func pageSpans(b []byte) []pageSpan {
	var spans []pageSpan
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	for len(b) > 0 {
		page := addr &^ (pageSize - 1)
		n := min(int(page+pageSize-addr), len(b))
		spans = append(spans, pageSpan{page: page, b: b[:n]})
		b = b[n:]
		addr += uintptr(n)
	}
	return spans
}

// lockMemory keeps key pages out of swap. Failure (typically RLIMIT_MEMLOCK)
// leaves the key usable but unlocked.
func lockMemory(b []byte) {
	lockMu.Lock()
	defer lockMu.Unlock()
	for _, s := range pageSpans(b) {
		if locked[s.page] == 0 {
			if err := unix.Mlock(s.b); err != nil {
				continue
			}
		}
		locked[s.page]++
	}
}

// unlockMemory releases b's pages. A page still holding another locked key
// stays locked.
func unlockMemory(b []byte) {
	lockMu.Lock()
	defer lockMu.Unlock()
	for _, s := range pageSpans(b) {
		n, ok := locked[s.page]
		if !ok {
			continue
		}
		if n > 1 {
			locked[s.page] = n - 1
			continue
		}
		delete(locked, s.page)
		_ = unix.Munlock(s.b)
	}
}
