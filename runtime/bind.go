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

package runtime

import (
	"bytes"
	"fmt"

	"github.com/relaycap/gapimem/core/data/id"
	"github.com/relaycap/gapimem/database"
	"github.com/relaycap/gapimem/memory"
)

// cstringChunk is the number of bytes CStringToSlice probes at a time
// while scanning for a NUL terminator.
const cstringChunk = 64

// cstringMaxLen bounds how far CStringToSlice will scan before giving
// up on an unterminated string.
const cstringMaxLen = 1 << 20

// Bind constructs the subset of the callback table whose behavior is
// fully determined by the pool registry, slice resolver and database:
// pool lifetime, memory resolution and content-addressed storage.
// ApplyReads, ApplyWrites and CallExtern are left unset, since their
// behavior depends on generated, per-command logic this package knows
// nothing about; a caller wanting those must extend the returned table
// before calling Install.
func Bind(reg *memory.Registry, resolver *memory.Resolver, db *database.Database) Callbacks {
	return Callbacks{
		ResolvePoolData: func(ctx *Context, pool memory.PoolID, ptr, size uint64, access memory.AccessFlags) []byte {
			buf, _ := resolver.Resolve(ctx.Arena, pool, ptr, size, access)
			return buf
		},
		StoreInDatabase: func(ctx *Context, data []byte) id.ID {
			return db.Store(data)
		},
		MakePool: func(ctx *Context, size uint64) memory.PoolID {
			return reg.New(size).ID()
		},
		PoolReference: func(ctx *Context, pool memory.PoolID) {
			reg.Reference(pool)
		},
		PoolRelease: func(ctx *Context, pool memory.PoolID) {
			reg.Release(pool)
		},
		CopySlice: func(ctx *Context, dst, src memory.Slice) {
			resolver.CopySlice(ctx.Arena, dst, src)
		},
		CStringToSlice: cstringToSlice(reg, resolver),
	}
}

// cstringToSlice scans ApplicationPool starting at ptr for a NUL
// terminator, copies the bytes up to and including it into a freshly
// made pool, and returns a slice describing that pool. The returned
// slice's size covers the terminator, matching the native executor's
// cstring_to_slice contract. Scanning grows in cstringChunk steps
// rather than requiring the embedder to expose a strlen-like primitive
// of its own.
func cstringToSlice(reg *memory.Registry, resolver *memory.Resolver) func(ctx *Context, ptr uint64) memory.Slice {
	return func(ctx *Context, ptr uint64) memory.Slice {
		var contentLen uint64
		for {
			buf, owned := resolver.Resolve(ctx.Arena, memory.ApplicationPool, ptr+contentLen, cstringChunk, memory.AccessRead)
			idx := bytes.IndexByte(buf, 0)
			if idx >= 0 {
				contentLen += uint64(idx)
				if owned {
					ctx.Arena.Free(buf)
				}
				break
			}
			contentLen += cstringChunk
			if owned {
				ctx.Arena.Free(buf)
			}
			if contentLen > cstringMaxLen {
				panic(fmt.Sprintf("runtime: cstring at %#x exceeds %d bytes without a NUL terminator", ptr, cstringMaxLen))
			}
		}

		size := contentLen + 1 // include the NUL terminator
		data, owned := resolver.Resolve(ctx.Arena, memory.ApplicationPool, ptr, size, memory.AccessRead)
		pool := reg.New(size)
		pool.Write(reg.Arena(), 0, size, data)
		if owned {
			ctx.Arena.Free(data)
		}
		return memory.Slice{Pool: pool.ID(), Root: ptr, Base: 0, Size: size, Count: size}
	}
}
