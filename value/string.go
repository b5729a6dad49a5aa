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

// Package value implements the reference-counted string and
// open-addressed map types the generated code operates on, mirroring
// the string_t and map_t records of the native runtime.
package value

import (
	"bytes"
	"sync/atomic"

	"github.com/relaycap/gapimem/core/memory/arena"
)

type stringHeader struct {
	refCount int32
	arena    arena.Arena
	data     []byte
}

// String is a reference-counted, immutable byte string. Its zero value
// is the empty string and needs no Release.
type String struct {
	h *stringHeader
}

// NewString copies data into a., taking ownership of the copy.
func NewString(a arena.Arena, data []byte) String {
	if len(data) == 0 {
		return String{}
	}
	buf := a.Allocate(len(data), 1)
	copy(buf, data)
	return String{h: &stringHeader{refCount: 1, arena: a, data: buf}}
}

// Bytes returns the string's content. The caller must not modify it.
func (s String) Bytes() []byte {
	if s.h == nil {
		return nil
	}
	return s.h.data
}

// Len returns the number of bytes in the string.
func (s String) Len() int { return len(s.Bytes()) }

// Reference increments the string's reference count. Referencing the
// zero value is a no-op.
func (s String) Reference() {
	if s.h != nil {
		atomic.AddInt32(&s.h.refCount, 1)
	}
}

// Release decrements the string's reference count, freeing its backing
// buffer once the count reaches zero. Releasing the zero value is a
// no-op. Releasing a string whose count has already reached zero
// panics: that is use-after-free style misuse.
func (s String) Release() {
	if s.h == nil {
		return
	}
	if atomic.LoadInt32(&s.h.refCount) <= 0 {
		panic("value: release of string with non-positive reference count")
	}
	if atomic.AddInt32(&s.h.refCount, -1) == 0 {
		s.h.arena.Free(s.h.data)
	}
}

// Concat returns the concatenation of lhs and rhs. When one side is
// empty, Concat returns the other side directly with its reference
// count bumped instead of allocating, the same short circuit the
// native runtime takes.
func Concat(a arena.Arena, lhs, rhs String) String {
	if lhs.Len() == 0 {
		rhs.Reference()
		return rhs
	}
	if rhs.Len() == 0 {
		lhs.Reference()
		return lhs
	}
	out := make([]byte, 0, lhs.Len()+rhs.Len())
	out = append(out, lhs.Bytes()...)
	out = append(out, rhs.Bytes()...)
	return NewString(a, out)
}

// Compare returns -1, 0 or 1 as lhs sorts before, equal to, or after
// rhs, byte for byte.
func Compare(lhs, rhs String) int {
	return bytes.Compare(lhs.Bytes(), rhs.Bytes())
}
