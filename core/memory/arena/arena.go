// Copyright (C) 2017 Google Inc.
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

// Package arena implements the aligned-allocate/reallocate/free contract
// that every owned buffer in the memory model is built on top of.
//
// The original arena is a native bump/region allocator reached through
// cgo. This reimplementation keeps the same explicit-ownership contract
// (nothing is ever reclaimed except through an explicit Free) but backs
// it with normal garbage-collected Go slices, since there is no unmanaged
// heap to bump-allocate from. Ownership is still tracked: a double free,
// or a Free or Reallocate of a buffer this arena does not own, panics,
// matching the fatal-on-misuse contract of the original allocator.
// Allocations that are never freed are counted in Stats but are not
// reported as errors.
package arena

import (
	"context"
	"fmt"
	"sync"
)

// Arena is a caller-supplied allocator that owns every allocation it
// hands out until that allocation is explicitly freed. All pools,
// strings, maps and refs used by the memory model are allocated from
// one.
type Arena interface {
	// Allocate returns a new zero-filled, arena-owned buffer of the
	// given size. Alignment is accepted for parity with the native
	// contract but is ignored: it is neither stored nor applied to the
	// returned slice's addressing.
	Allocate(size, align int) []byte

	// Reallocate grows or shrinks buf, preserving the first
	// min(len(buf), size) bytes. buf must have been returned by this
	// Arena (or be nil).
	Reallocate(buf []byte, size, align int) []byte

	// Free releases buf back to the arena. buf must have been returned
	// by Allocate or Reallocate on this Arena and must not have already
	// been freed.
	Free(buf []byte)

	// Stats returns the current allocation statistics for the arena.
	Stats() Stats
}

// Stats holds statistics of an Arena.
type Stats struct {
	NumAllocations    int
	NumBytesAllocated int
}

func (s Stats) String() string {
	return fmt.Sprintf("{allocs: %v, bytes: %v}", s.NumAllocations, s.NumBytesAllocated)
}

type allocation struct {
	size int
	live bool
}

// arena is the default Arena implementation.
type arena struct {
	mu    sync.Mutex
	stats Stats
	live  map[*byte]*allocation
}

// New constructs a new Arena. Every allocation made from it must
// eventually be passed to Free.
func New() Arena {
	return &arena{live: map[*byte]*allocation{}}
}

func key(buf []byte) *byte {
	if cap(buf) == 0 {
		return nil
	}
	return &buf[:1][0]
}

func (a *arena) Allocate(size, align int) []byte {
	if size < 0 {
		panic("arena: negative allocation size")
	}
	buf := make([]byte, size, size+1) // +1 so an empty allocation still has a stable address.
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live[key(buf)] = &allocation{size: size, live: true}
	a.stats.NumAllocations++
	a.stats.NumBytesAllocated += size
	return buf
}

func (a *arena) Reallocate(buf []byte, size, align int) []byte {
	a.mu.Lock()
	k := key(buf)
	rec, ok := a.live[k]
	if buf != nil && (!ok || !rec.live) {
		a.mu.Unlock()
		panic("arena: reallocate of buffer not owned by this arena")
	}
	oldSize := 0
	if ok {
		oldSize = rec.size
		rec.live = false
		delete(a.live, k)
		a.stats.NumBytesAllocated -= oldSize
		a.stats.NumAllocations--
	}
	a.mu.Unlock()

	out := make([]byte, size, size+1)
	copy(out, buf[:min(oldSize, size)])

	a.mu.Lock()
	a.live[key(out)] = &allocation{size: size, live: true}
	a.stats.NumAllocations++
	a.stats.NumBytesAllocated += size
	a.mu.Unlock()
	return out
}

func (a *arena) Free(buf []byte) {
	if buf == nil {
		return
	}
	k := key(buf)
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.live[k]
	if !ok || !rec.live {
		panic("arena: double free or free of buffer not owned by this arena")
	}
	rec.live = false
	delete(a.live, k)
	a.stats.NumAllocations--
	a.stats.NumBytesAllocated -= rec.size
}

func (a *arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

type arenaKeyTy string

const arenaKey = arenaKeyTy("arena")

// Get returns the Arena attached to the given context.
func Get(ctx context.Context) Arena {
	if val := ctx.Value(arenaKey); val != nil {
		return val.(Arena)
	}
	panic("arena missing from context")
}

// Put amends a Context by attaching an Arena reference to it.
func Put(ctx context.Context, a Arena) context.Context {
	return context.WithValue(ctx, arenaKey, a)
}
