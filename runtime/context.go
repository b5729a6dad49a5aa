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

// Package runtime is the Go analogue of the generated program's runtime
// support library: the callback table every compiled command dispatches
// through for memory and extern access, plus the per-call Context each
// callback is threaded.
package runtime

import (
	"context"

	"github.com/relaycap/gapimem/core/data/id"
	"github.com/relaycap/gapimem/core/memory/arena"
	"github.com/relaycap/gapimem/memory"
)

// Context is the first argument to every runtime callback, carrying the
// identity of the call in flight along with the arena and pool resolver
// it must use for any memory access it makes.
type Context struct {
	// Go carries request-scoped values (logging handler, cancellation)
	// through Go, the way the native context_t carries a raw arena
	// pointer through C.
	Go context.Context

	// ID identifies the capture this context belongs to.
	ID id.ID
	// CommandID is the index of the command currently executing.
	CommandID uint64

	Arena    arena.Arena
	Resolver *memory.Resolver
}

// NewContext constructs a Context for the given capture.
func NewContext(goCtx context.Context, captureID id.ID, a arena.Arena, resolver *memory.Resolver) *Context {
	return &Context{Go: goCtx, ID: captureID, Arena: a, Resolver: resolver}
}
