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

package value_test

import (
	"testing"

	"github.com/relaycap/gapimem/value"
)

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func TestMapSetGet(t *testing.T) {
	m := value.NewMap[string, int](hashString)
	m.Set("a", 1)
	m.Set("b", 2)

	if got, ok := m.Get("a"); !ok || got != 1 {
		t.Fatalf("Get(a) = %v, %v", got, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatalf("Get(missing) reported found")
	}
	if got := m.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
}

func TestMapDeleteLeavesTombstoneThatDoesNotBreakProbing(t *testing.T) {
	m := value.NewMap[string, int](func(string) uint64 { return 0 }) // force collisions
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	m.Delete("b")
	if m.Contains("b") {
		t.Fatalf("expected b to be deleted")
	}
	if got, ok := m.Get("c"); !ok || got != 3 {
		t.Fatalf("Get(c) after deleting b = %v, %v, want 3, true", got, ok)
	}
	if got := m.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
}

func TestMapOverwriteExistingKey(t *testing.T) {
	m := value.NewMap[string, int](hashString)
	m.Set("a", 1)
	m.Set("a", 2)

	if got, _ := m.Get("a"); got != 2 {
		t.Fatalf("Get(a) = %d, want 2", got)
	}
	if got := m.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestMapGrowsAndPreservesEntries(t *testing.T) {
	m := value.NewMap[int, int](func(k int) uint64 { return uint64(k) })
	for i := 0; i < 100; i++ {
		m.Set(i, i*i)
	}
	if got := m.Len(); got != 100 {
		t.Fatalf("Len() = %d, want 100", got)
	}
	for i := 0; i < 100; i++ {
		if got, ok := m.Get(i); !ok || got != i*i {
			t.Fatalf("Get(%d) = %v, %v, want %d, true", i, got, ok, i*i)
		}
	}
}

func TestMapRangeSkipsTombstones(t *testing.T) {
	m := value.NewMap[string, int](hashString)
	m.Set("a", 1)
	m.Set("b", 2)
	m.Delete("a")

	seen := map[string]int{}
	m.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	if len(seen) != 1 || seen["b"] != 2 {
		t.Fatalf("Range visited %v, want only b", seen)
	}
}
