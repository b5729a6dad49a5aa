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
	"github.com/relaycap/gapimem/memory"
	"github.com/relaycap/gapimem/value"
)

// StringToSlice copies s's bytes into a freshly made pool through the
// installed MakePool and CopySlice-equivalent write path, returning a
// slice describing that pool. The pool is allocated one byte larger
// than the string and that extra byte is written as a NUL terminator,
// matching make_string's null-terminated storage contract; the
// returned slice's Size still reports the string's content length, not
// the terminator.
func StringToSlice(ctx *Context, s value.String) memory.Slice {
	n := uint64(s.Len())
	pid := MakePool(ctx, n+1)
	pool := ctx.Resolver.Registry.Get(pid)

	buf := make([]byte, n+1)
	copy(buf, s.Bytes())
	pool.Write(ctx.Arena, 0, n+1, buf)

	return memory.Slice{Pool: pid, Base: 0, Size: n, Count: n}
}

// SliceToString resolves sl and builds a String from its bytes. A
// single trailing NUL, if present, is trimmed, matching the native
// runtime's treatment of slices that came from a C string.
func SliceToString(ctx *Context, sl memory.Slice) value.String {
	buf, owned := ctx.Resolver.ResolveSlice(ctx.Arena, sl, memory.AccessRead)
	if owned {
		defer ctx.Arena.Free(buf)
	}
	if n := len(buf); n > 0 && buf[n-1] == 0 {
		buf = buf[:n-1]
	}
	return value.NewString(ctx.Arena, buf)
}
