// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// Adapted from cznic-memory's size-classed Allocator: relmem uses it,
// unmodified in spirit, as the backing source for every Block that does
// not request an explicit alignment. The unsafe.Pointer-returning
// Unsafe* mirror API and the trace build-tag are dropped — every call
// site in this package works with []byte and the package-level Debug
// switch in trace.go.

package relmem

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/cznic/mathutil"
)

const (
	mallocAllign = 16 // Must be >= 16.
	pageSize     = 1 << 20
)

var (
	osPageSize  = os.Getpagesize()
	osPageMask  = osPageSize - 1
	headerSize  = roundup(int(unsafe.Sizeof(page{})), mallocAllign)
	pageAvail   = pageSize - headerSize
	pageMask    = pageSize - 1
	maxSlotSize = pageAvail >> 1
)

// roundup rounds n up to the next multiple of m. m must be a power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

func roundupUintptr(n, m uintptr) uintptr { return (n + m - 1) &^ (m - 1) }

type node struct {
	prev, next *node
}

type page struct {
	brk  int
	log  uint
	size int
	used int
}

// pagePool allocates and frees untyped byte backing for Blocks that do
// not need a specific alignment. Its zero value is ready for use.
type pagePool struct {
	allocs int
	bytes  int
	cap    [64]int
	lists  [64]*node
	mmaps  int
	pages  [64]*page
	regs   map[*page]struct{}
}

var globalPool pagePool

func (a *pagePool) mmap(size int) (*page, error) {
	b, err := mmapSys(size)
	if err != nil {
		return nil, err
	}

	a.mmaps++
	a.bytes += len(b)
	p := (*page)(unsafe.Pointer(&b[0]))
	if a.regs == nil {
		a.regs = map[*page]struct{}{}
	}
	p.size = len(b)
	a.regs[p] = struct{}{}
	return p, nil
}

func (a *pagePool) newPage(size int) (*page, error) {
	size += headerSize
	p, err := a.mmap(size)
	if err != nil {
		return nil, err
	}

	p.log = 0
	return p, nil
}

func (a *pagePool) newSharedPage(log uint) (*page, error) {
	if a.cap[log] == 0 {
		a.cap[log] = pageAvail / (1 << log)
	}
	size := headerSize + a.cap[log]<<log
	p, err := a.mmap(size)
	if err != nil {
		return nil, err
	}

	a.pages[log] = p
	p.log = log
	return p, nil
}

func (a *pagePool) unmap(p *page) error {
	delete(a.regs, p)
	a.mmaps--
	return munmapSys(unsafe.Pointer(p), p.size)
}

// calloc is like malloc except the allocated memory is zeroed.
func (a *pagePool) calloc(size int) ([]byte, error) {
	b, err := a.malloc(size)
	if err != nil {
		return nil, err
	}

	for i := range b {
		b[i] = 0
	}
	return b, nil
}

// free deallocates memory acquired from calloc, malloc or realloc.
func (a *pagePool) free(b []byte) error {
	tracef("free(%#x)", cap(b))
	b = b[:cap(b)]
	if len(b) == 0 {
		return nil
	}

	a.allocs--
	p := (*page)(unsafe.Pointer(uintptr(unsafe.Pointer(&b[0])) &^ uintptr(pageMask)))
	log := p.log
	if log == 0 {
		a.bytes -= p.size
		return a.unmap(p)
	}

	n := (*node)(unsafe.Pointer(&b[0]))
	n.prev = nil
	n.next = a.lists[log]
	if n.next != nil {
		n.next.prev = n
	}
	a.lists[log] = n
	p.used--
	if p.used != 0 {
		return nil
	}

	for i := 0; i < p.brk; i++ {
		n := (*node)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(headerSize+i<<log)))
		switch {
		case n.prev == nil:
			a.lists[log] = n.next
			if n.next != nil {
				n.next.prev = nil
			}
		case n.next == nil:
			n.prev.next = nil
		default:
			n.prev.next = n.next
			n.next.prev = n.prev
		}
	}

	if a.pages[log] == p {
		a.pages[log] = nil
	}
	a.bytes -= p.size
	return a.unmap(p)
}

// malloc allocates size bytes and returns an uninitialized byte slice.
// malloc panics for size < 0 and returns (nil, nil) for zero size.
func (a *pagePool) malloc(size int) ([]byte, error) {
	if size < 0 {
		panic("relmem: invalid malloc size")
	}

	if size == 0 {
		return nil, nil
	}

	a.allocs++
	log := uint(mathutil.BitLen(roundup(size, mallocAllign) - 1))
	if 1<<log > maxSlotSize {
		p, err := a.newPage(size)
		if err != nil {
			return nil, err
		}

		return sliceAt(unsafe.Pointer(p), headerSize, size, size), nil
	}

	if a.lists[log] == nil && a.pages[log] == nil {
		if _, err := a.newSharedPage(log); err != nil {
			return nil, err
		}
	}

	if p := a.pages[log]; p != nil {
		p.used++
		b := sliceAt(unsafe.Pointer(p), headerSize+p.brk<<log, size, 1<<log)
		p.brk++
		if p.brk == a.cap[log] {
			a.pages[log] = nil
		}
		return b, nil
	}

	n := a.lists[log]
	p := (*page)(unsafe.Pointer(uintptr(unsafe.Pointer(n)) &^ uintptr(pageMask)))
	a.lists[log] = n.next
	if n.next != nil {
		n.next.prev = nil
	}
	p.used++
	return sliceAt(unsafe.Pointer(n), 0, size, 1<<log), nil
}

// realloc changes the size of the backing array of b to size bytes.
// The contents are preserved up to min(len(b), size). If b has zero
// capacity, realloc behaves like malloc(size); if size is zero and b does
// not have zero capacity, realloc behaves like free(b) and returns nil.
func (a *pagePool) realloc(b []byte, size int) ([]byte, error) {
	switch {
	case cap(b) == 0:
		return a.malloc(size)
	case size == 0:
		return nil, a.free(b)
	case size <= cap(b):
		return b[:size], nil
	}

	r, err := a.malloc(size)
	if err != nil {
		return nil, err
	}

	copy(r, b)
	return r, a.free(b)
}

func sliceAt(base unsafe.Pointer, offset, length, capacity int) []byte {
	ptr := unsafe.Add(base, offset)
	return unsafe.Slice((*byte)(ptr), capacity)[:length]
}

// newBacking obtains size bytes of backing storage and the payload slice
// a Block should expose to callers. When align is 0, storage comes from
// globalPool, the pooled allocator adapted from cznic-memory: zeroed asks
// for globalPool.calloc, matching C's calloc, and !zeroed asks for
// globalPool.malloc, matching C's malloc, which may hand back bytes left
// over from a previously freed allocation. When align is non-zero,
// storage comes directly from the operating system's anonymous mmap
// (mmapSys, adapted from cznic-memory's platform mmap files), which
// always returns OS-page-aligned, already-zeroed memory regardless of
// zeroed; for alignments larger than the page size the request over-maps
// by the alignment and trims to the first aligned offset, mirroring the
// header-pad computation described for libsc's aligned path. The
// returned backing slice is what must be passed to freeBacking; payload
// is the (possibly offset) slice exposed to the caller.
func newBacking(size, align int, zeroed bool) (backing, payload []byte, err error) {
	if align == 0 {
		var b []byte
		var err error
		if zeroed {
			b, err = globalPool.calloc(size)
		} else {
			b, err = globalPool.malloc(size)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("relmem: %w: %v", ErrAllocationFailure, err)
		}
		return b, b, nil
	}

	if align&(align-1) != 0 {
		return nil, nil, fmt.Errorf("relmem: alignment %d is not a power of two: %w", align, ErrInvalidArgument)
	}

	if align <= osPageSize {
		b, err := mmapSys(roundup(size, osPageSize))
		if err != nil {
			return nil, nil, fmt.Errorf("relmem: %w: %v", ErrAllocationFailure, err)
		}
		return b, b[:size], nil
	}

	raw, err := mmapSys(size + align)
	if err != nil {
		return nil, nil, fmt.Errorf("relmem: %w: %v", ErrAllocationFailure, err)
	}
	addr := uintptr(unsafe.Pointer(&raw[0]))
	pad := int(roundupUintptr(addr, uintptr(align)) - addr)
	return raw, raw[pad : pad+size], nil
}

// resizeBacking changes oldBacking/oldPayload to size bytes, preserving
// the prefix common to the old and new sizes. For an unaligned Block
// (align == 0) this routes through globalPool.realloc, which grows in
// place within the existing pool slot whenever there is room instead of
// always migrating to a fresh allocation, the same in-place-when-possible
// strategy libsc's realloc-based resize uses. Aligned Blocks have no
// equivalent in-place primitive — anonymous mmap exposes no realloc — so
// they always go through a fresh newBacking, a copy, and a freeBacking of
// the old storage.
func resizeBacking(oldBacking, oldPayload []byte, align, size int) (backing, payload []byte, err error) {
	if align == 0 {
		b, err := globalPool.realloc(oldBacking, size)
		if err != nil {
			return nil, nil, fmt.Errorf("relmem: %w: %v", ErrAllocationFailure, err)
		}
		return b, b, nil
	}

	backing, payload, err = newBacking(size, align, false)
	if err != nil {
		return nil, nil, err
	}
	copy(payload, oldPayload)
	freeBacking(oldBacking, align)
	return backing, payload, nil
}

// freeBacking releases storage obtained from newBacking or resizeBacking.
// Unaligned storage (align == 0) goes back to globalPool, where a later
// malloc may hand the same bytes out again without zeroing them; aligned
// storage is unmapped. Because reused pool bytes are not zeroed, the
// zero-fill of a grown tail is done by Block.ResizeZeroed, not here.
func freeBacking(backing []byte, align int) {
	if len(backing) == 0 {
		return
	}
	if align == 0 {
		if err := globalPool.free(backing); err != nil {
			tracef("free backing: %v", err)
		}
		return
	}
	if err := munmapSys(unsafe.Pointer(&backing[0]), len(backing)); err != nil {
		tracef("munmap backing: %v", err)
	}
}
