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

package memory_test

import (
	"testing"

	"github.com/relaycap/gapimem/core/memory/arena"
	"github.com/relaycap/gapimem/memory"
)

func TestRegistryAllocatesIncreasingIDs(t *testing.T) {
	r := memory.NewRegistry(arena.New())

	a := r.New(16)
	b := r.New(32)

	if a.ID() == memory.ApplicationPool || b.ID() == memory.ApplicationPool {
		t.Fatalf("registry handed out ApplicationPool id")
	}
	if b.ID() <= a.ID() {
		t.Fatalf("registry handed out non-increasing ids: %d then %d", a.ID(), b.ID())
	}
}

func TestRegistryGetUnknownIDPanics(t *testing.T) {
	r := memory.NewRegistry(arena.New())
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unknown pool id")
		}
	}()
	r.Get(memory.PoolID(999))
}

func TestRegistryReleaseDestroysAtZeroRefcount(t *testing.T) {
	r := memory.NewRegistry(arena.New())
	p := r.New(16)

	r.Reference(p.ID())
	if got := r.Get(p.ID()).RefCount(); got != 2 {
		t.Fatalf("refcount = %d, want 2", got)
	}

	r.Release(p.ID())
	if got := r.Get(p.ID()).RefCount(); got != 1 {
		t.Fatalf("refcount = %d, want 1", got)
	}

	r.Release(p.ID())
	if got := r.Len(); got != 0 {
		t.Fatalf("registry length after final release = %d, want 0", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double release")
		}
	}()
	r.Release(p.ID())
}

func TestRegistryApplicationPoolReferenceReleasePanics(t *testing.T) {
	r := memory.NewRegistry(arena.New())
	// ApplicationPool is never registered; referencing or releasing it
	// through the registry is a fatal caller error.
	for name, op := range map[string]func(memory.PoolID){"Reference": r.Reference, "Release": r.Release} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s(ApplicationPool) did not panic", name)
				}
			}()
			op(memory.ApplicationPool)
		}()
	}
}

func TestRegistryReleaseAfterSplitWriteDoesNotDoubleFree(t *testing.T) {
	r := memory.NewRegistry(arena.New())
	p := r.New(16)

	p.Write(r.Arena(), 0, 10, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	p.Write(r.Arena(), 4, 2, []byte{99, 98})

	// The second write splits the first interval into a left and right
	// fragment sharing the same backing buffer; releasing the pool must
	// free that buffer once, not once per surviving fragment.
	r.Release(p.ID())
}
