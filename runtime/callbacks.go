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
	"fmt"
	"sync"

	"github.com/relaycap/gapimem/core/data/id"
	"github.com/relaycap/gapimem/memory"
)

// Callbacks is the set of functions a host embeds into the runtime to
// give it access to memory, the database and the outside world. Every
// field mirrors one member of the native gapil_runtime_callbacks_t
// function-pointer table: compiled call bodies never touch pools,
// slices or storage directly, they only ever go through here.
type Callbacks struct {
	// ApplyReads runs every pending read observation queued for the
	// in-flight command.
	ApplyReads func(ctx *Context)
	// ApplyWrites runs every pending write observation queued for the
	// in-flight command.
	ApplyWrites func(ctx *Context)
	// ResolvePoolData returns size bytes of pool starting at ptr,
	// honoring access as a hint for whether the caller intends to read,
	// write, or both.
	ResolvePoolData func(ctx *Context, pool memory.PoolID, ptr uint64, size uint64, access memory.AccessFlags) []byte
	// StoreInDatabase persists data content-addressably and returns its
	// identifier.
	StoreInDatabase func(ctx *Context, data []byte) id.ID
	// MakePool creates a new pool of the given size with a reference
	// count of one and returns its id.
	MakePool func(ctx *Context, size uint64) memory.PoolID
	// PoolReference increments a pool's reference count.
	PoolReference func(ctx *Context, pool memory.PoolID)
	// PoolRelease decrements a pool's reference count, destroying it at
	// zero.
	PoolRelease func(ctx *Context, pool memory.PoolID)
	// CallExtern invokes a named extern function with the given
	// argument bytes, returning its encoded result.
	CallExtern func(ctx *Context, name string, args []byte) []byte
	// CopySlice copies src's bytes into dst, truncating to the smaller
	// of the two sizes.
	CopySlice func(ctx *Context, dst, src memory.Slice)
	// CStringToSlice reads a NUL-terminated byte string out of
	// ApplicationPool starting at ptr and returns a slice describing it.
	CStringToSlice func(ctx *Context, ptr uint64) memory.Slice
}

var (
	mu        sync.Mutex
	installed *Callbacks
)

// Install sets the process-wide callback table. It may be called
// exactly once: a second call panics, matching the write-once contract
// of gapil_set_runtime_callbacks.
func Install(cb Callbacks) {
	mu.Lock()
	defer mu.Unlock()
	if installed != nil {
		panic("runtime: callbacks already installed")
	}
	installed = &cb
}

// Reset clears the installed callback table. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	installed = nil
}

func table() *Callbacks {
	mu.Lock()
	defer mu.Unlock()
	if installed == nil {
		panic("runtime: callbacks not installed")
	}
	return installed
}

func missing(name string) {
	panic(fmt.Sprintf("runtime: callback %s not set", name))
}

func ApplyReads(ctx *Context) {
	cb := table()
	if cb.ApplyReads == nil {
		missing("ApplyReads")
	}
	cb.ApplyReads(ctx)
}

func ApplyWrites(ctx *Context) {
	cb := table()
	if cb.ApplyWrites == nil {
		missing("ApplyWrites")
	}
	cb.ApplyWrites(ctx)
}

func ResolvePoolData(ctx *Context, pool memory.PoolID, ptr, size uint64, access memory.AccessFlags) []byte {
	cb := table()
	if cb.ResolvePoolData == nil {
		missing("ResolvePoolData")
	}
	return cb.ResolvePoolData(ctx, pool, ptr, size, access)
}

func StoreInDatabase(ctx *Context, data []byte) id.ID {
	cb := table()
	if cb.StoreInDatabase == nil {
		missing("StoreInDatabase")
	}
	return cb.StoreInDatabase(ctx, data)
}

func MakePool(ctx *Context, size uint64) memory.PoolID {
	cb := table()
	if cb.MakePool == nil {
		missing("MakePool")
	}
	return cb.MakePool(ctx, size)
}

func PoolReference(ctx *Context, pool memory.PoolID) {
	cb := table()
	if cb.PoolReference == nil {
		missing("PoolReference")
	}
	cb.PoolReference(ctx, pool)
}

func PoolRelease(ctx *Context, pool memory.PoolID) {
	cb := table()
	if cb.PoolRelease == nil {
		missing("PoolRelease")
	}
	cb.PoolRelease(ctx, pool)
}

func CallExtern(ctx *Context, name string, args []byte) []byte {
	cb := table()
	if cb.CallExtern == nil {
		missing("CallExtern")
	}
	return cb.CallExtern(ctx, name, args)
}

func CopySlice(ctx *Context, dst, src memory.Slice) {
	cb := table()
	if cb.CopySlice == nil {
		missing("CopySlice")
	}
	cb.CopySlice(ctx, dst, src)
}

func CStringToSlice(ctx *Context, ptr uint64) memory.Slice {
	cb := table()
	if cb.CStringToSlice == nil {
		missing("CStringToSlice")
	}
	return cb.CStringToSlice(ctx, ptr)
}
