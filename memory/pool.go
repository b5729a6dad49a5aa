// Copyright (C) 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memory implements the pool-based sparse memory model: pools of
// bytes addressed by slices, resolved through a sparse store of owned
// intervals, and reference counted by a registry.
package memory

import (
	"github.com/relaycap/gapimem/core/data/interval"
	"github.com/relaycap/gapimem/core/math/u64"
	"github.com/relaycap/gapimem/core/memory/arena"
)

// PoolID uniquely identifies a Pool. ApplicationPool (0) is reserved for
// the host process's virtual address space and is never created,
// referenced or released through the Registry.
type PoolID uint64

// ApplicationPool is the reserved identifier for host virtual memory.
const ApplicationPool = PoolID(0)

// DataKind tags the payload of a sparse-store interval.
type DataKind int

const (
	// KindBytes is a plain owned byte buffer.
	KindBytes DataKind = iota
	// KindResource is a lazily-fetched, content-addressed resource.
	// It is a tag only: nothing in this package constructs or resolves
	// data of this kind, and every interval Write or Copy inserts is
	// KindBytes. See DESIGN.md for the open question this leaves.
	KindResource
)

// data is one entry of a pool's sparse store, covering [start,end) of
// the pool's address space. origin is the extent the buffer was
// originally written across; start/end may have been narrowed since by
// a split or trim, in which case bytes[start-origin : end-origin] is the
// live sub-range - the buffer itself is never copied on split.
type data struct {
	origin     uint64
	start, end uint64
	bytes      []byte
	kind       DataKind
}

func (d data) Start() uint64 { return d.start }
func (d data) End() uint64   { return d.end }

func (d data) Adjust(start, end uint64) data {
	d.start, d.end = start, end
	return d
}

// slice returns the live sub-range of d's backing buffer.
func (d data) slice() []byte {
	off := d.start - d.origin
	return d.bytes[off : off+(d.end-d.start)]
}

func newBytesData(a arena.Arena, start, size uint64, src []byte) data {
	buf := a.Allocate(int(size), 1)
	copy(buf, src[:size])
	return data{origin: start, start: start, end: start + size, bytes: buf, kind: KindBytes}
}

// Pool is a sparse, arena-backed byte store representing one logically
// independent address space. Writes are never lost: each Write inserts
// an owned interval, and reads gather from whatever intervals overlap
// the requested range, treating uncovered bytes as zero.
type Pool struct {
	id       PoolID
	refCount uint32
	size     uint64
	arena    arena.Arena
	store    interval.List[data]
}

// ID returns the pool's identifier.
func (p *Pool) ID() PoolID { return p.id }

// Size returns the pool's logical size in bytes. This is a soft limit:
// sparse writes are not bounds-checked against it.
func (p *Pool) Size() uint64 { return p.size }

// RefCount returns the pool's current reference count.
func (p *Pool) RefCount() uint32 { return p.refCount }

// Write copies size bytes from src into a freshly arena-allocated
// buffer and installs it as the authoritative content for
// [base,base+size) in the pool.
func (p *Pool) Write(a arena.Arena, base, size uint64, src []byte) {
	p.store.Replace(newBytesData(a, base, size, src))
}

// Read resolves size bytes starting at addr.
//
// If exactly one stored interval overlaps [addr,addr+size) and fully
// contains it, Read returns an interior pointer into that interval's
// buffer with owned=false: no copy is made, and the caller must not
// hold onto the slice past the next mutation of the pool.
//
// Otherwise Read gathers the overlapping intervals into a freshly
// arena-allocated, zero-initialized buffer, returning owned=true. The
// caller is responsible for freeing the buffer (via the same arena)
// once done with it.
func (p *Pool) Read(a arena.Arena, addr, size uint64) (buf []byte, owned bool) {
	overlaps := p.store.Intersect(addr, addr+size)
	if len(overlaps) == 1 {
		iv := overlaps[0]
		if addr >= iv.Start() && addr+size <= iv.End() {
			b := iv.slice()
			off := addr - iv.Start()
			return b[off : off+size], false
		}
	}

	out := a.Allocate(int(size), 8)
	for _, iv := range overlaps {
		b := iv.slice()
		dstOff := uint64(0)
		srcOff := uint64(0)
		if iv.Start() > addr {
			dstOff = iv.Start() - addr
		} else {
			srcOff = addr - iv.Start()
		}
		n := u64.Min(size-dstOff, uint64(len(b))-srcOff)
		copy(out[dstOff:dstOff+n], b[srcOff:srcOff+n])
	}
	return out, true
}

// Copy enumerates the intervals of src overlapping
// [srcBase,srcBase+size), clips each to that window, translates the
// clipped extent into this pool's address space starting at dstBase,
// and inserts a deep copy of the intersected bytes via Replace.
//
// The native implementation aliases the source's buffer pointer
// directly into the destination's interval list, which requires the
// arena to outlive both pools. This reimplementation instead deep
// copies the intersected bytes on insertion (per the alternative the
// specification calls out as observably identical) so that each pool's
// buffers can be freed independently.
func (p *Pool) Copy(a arena.Arena, src *Pool, dstBase, srcBase, size uint64) {
	lo, hi := srcBase, srcBase+size
	for _, iv := range src.store.Intersect(lo, hi) {
		start := u64.Max(iv.Start(), lo)
		end := u64.Min(iv.End(), hi)
		if end <= start {
			continue
		}
		b := iv.slice()
		off := start - iv.Start()
		n := end - start

		dstStart := dstBase + (start - srcBase)
		p.store.Replace(newBytesData(a, dstStart, n, b[off:off+n]))
	}
}

// destroy frees every buffer this pool's sparse store owns. Called by
// the Registry once the pool's reference count reaches zero.
//
// A split (Write overwriting a sub-range of a larger interval) leaves
// two intervals pointing at the same origin buffer, narrowed to
// different [start,end) sub-ranges by Adjust. Free each distinct
// buffer once, keyed by its backing array's address, rather than once
// per surviving interval.
func (p *Pool) destroy(a arena.Arena) {
	freed := map[*byte]bool{}
	for _, iv := range p.store.All() {
		if len(iv.bytes) == 0 {
			continue
		}
		k := &iv.bytes[:1][0]
		if freed[k] {
			continue
		}
		freed[k] = true
		a.Free(iv.bytes)
	}
}
