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

package memory

import "github.com/relaycap/gapimem/core/memory/arena"

// AccessFlags describes the kind of access a resolve is being made for,
// mirroring the read/write bits a captured call declares against a
// slice parameter.
type AccessFlags uint8

const (
	AccessRead AccessFlags = 1 << iota
	AccessWrite
)

// Slice is the address of a captured value's backing memory: root is
// the original base address a captured pointer decayed from, base is
// the (possibly-sliced) current offset, and count is the element count
// backing Size in bytes.
type Slice struct {
	Pool  PoolID
	Root  uint64
	Base  uint64
	Size  uint64
	Count uint64
}

// ApplicationMemory is implemented by the embedder to resolve reads and
// writes against ApplicationPool: the capturing process's own address
// space, which the Registry has no record of.
type ApplicationMemory interface {
	Resolve(addr, size uint64, access AccessFlags) []byte
}

// Resolver turns (pool, offset, size) triples into host-addressable
// byte slices, the single choke point every slice read or write in the
// runtime passes through.
type Resolver struct {
	Registry *Registry
	App      ApplicationMemory
}

// NewResolver constructs a Resolver over reg, dispatching ApplicationPool
// resolves to app.
func NewResolver(reg *Registry, app ApplicationMemory) *Resolver {
	return &Resolver{Registry: reg, App: app}
}

// Resolve returns size bytes starting at offset within pool. owned
// reports whether the caller is responsible for freeing the returned
// buffer through a; it is always false for ApplicationPool, since that
// memory is never arena-owned.
func (r *Resolver) Resolve(a arena.Arena, pool PoolID, offset, size uint64, access AccessFlags) (buf []byte, owned bool) {
	if pool == ApplicationPool {
		if r.App == nil {
			panic("memory: resolve against ApplicationPool with no ApplicationMemory installed")
		}
		return r.App.Resolve(offset, size, access), false
	}
	return r.Registry.Get(pool).Read(a, offset, size)
}

// ResolveSlice resolves the memory backing s.
func (r *Resolver) ResolveSlice(a arena.Arena, s Slice, access AccessFlags) (buf []byte, owned bool) {
	return r.Resolve(a, s.Pool, s.Base, s.Size, access)
}

// CopySlice copies src's backing bytes into dst's, pool boundaries
// included: a copy between two non-application pools goes through
// Pool.Copy so the destination's sparse store gains its own owned
// interval, while a copy touching ApplicationPool falls back to a
// resolve-then-write since application memory has no sparse store to
// insert into.
func (r *Resolver) CopySlice(a arena.Arena, dst, src Slice) {
	n := src.Size
	if dst.Size < n {
		n = dst.Size
	}

	if dst.Pool != ApplicationPool && src.Pool != ApplicationPool {
		r.Registry.Get(dst.Pool).Copy(a, r.Registry.Get(src.Pool), dst.Base, src.Base, n)
		return
	}

	buf, owned := r.Resolve(a, src.Pool, src.Base, n, AccessRead)
	if owned {
		defer a.Free(buf)
	}
	if dst.Pool == ApplicationPool {
		copy(r.App.Resolve(dst.Base, n, AccessWrite), buf)
		return
	}
	r.Registry.Get(dst.Pool).Write(a, dst.Base, n, buf)
}
