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

import (
	"fmt"
	"sync"

	"github.com/relaycap/gapimem/core/memory/arena"
)

// Registry owns every non-application pool created for a capture, handing
// out monotonically increasing PoolIDs and reference counting each pool
// to a matching Release.
type Registry struct {
	mu     sync.Mutex
	arena  arena.Arena
	nextID PoolID
	pools  map[PoolID]*Pool
}

// NewRegistry constructs an empty Registry. IDs are allocated starting
// at 1: ApplicationPool (0) is never handed out.
func NewRegistry(a arena.Arena) *Registry {
	return &Registry{arena: a, nextID: 1, pools: map[PoolID]*Pool{}}
}

// New allocates a fresh pool of the given logical size with a reference
// count of one and registers it.
func (r *Registry) New(size uint64) *Pool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	p := &Pool{id: id, refCount: 1, size: size, arena: r.arena}
	r.pools[id] = p
	return p
}

// Get looks up a previously registered pool. Looking up ApplicationPool
// or an unknown id is a fatal caller error, matching the native
// get_pool contract, which asserts rather than returning an error.
func (r *Registry) Get(id PoolID) *Pool {
	if id == ApplicationPool {
		panic("memory: ApplicationPool has no backing Pool in the registry")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[id]
	if !ok {
		panic(fmt.Sprintf("memory: unknown pool id %d", id))
	}
	return p
}

// Reference increments the reference count of the pool with the given
// id. Referencing ApplicationPool or an unknown id panics.
func (r *Registry) Reference(id PoolID) {
	p := r.Get(id)
	r.mu.Lock()
	p.refCount++
	r.mu.Unlock()
}

// Release decrements the reference count of the pool with the given id,
// destroying and unregistering it once the count reaches zero.
// Releasing ApplicationPool or an unknown id panics.
func (r *Registry) Release(id PoolID) {
	if id == ApplicationPool {
		panic("memory: release of ApplicationPool through the registry")
	}
	r.mu.Lock()
	p, ok := r.pools[id]
	if !ok {
		r.mu.Unlock()
		panic(fmt.Sprintf("memory: release of unknown pool id %d", id))
	}
	p.refCount--
	dead := p.refCount == 0
	if dead {
		delete(r.pools, id)
	}
	r.mu.Unlock()

	if dead {
		p.destroy(r.arena)
	}
}

// Arena returns the allocator every pool in this registry is backed by.
func (r *Registry) Arena() arena.Arena { return r.arena }

// Len returns the number of pools currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}
