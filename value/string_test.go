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

	"github.com/relaycap/gapimem/core/memory/arena"
	"github.com/relaycap/gapimem/value"
)

func TestStringReleaseFreesAtZeroRefcount(t *testing.T) {
	a := arena.New()
	s := value.NewString(a, []byte("hello"))
	s.Reference()

	s.Release()
	if got := a.Stats().NumAllocations; got != 1 {
		t.Fatalf("stats after first release = %+v, want still allocated", a.Stats())
	}

	s.Release()
	if got := a.Stats().NumAllocations; got != 0 {
		t.Fatalf("stats after second release = %+v, want freed", a.Stats())
	}
}

func TestStringReleaseBelowZeroPanics(t *testing.T) {
	a := arena.New()
	s := value.NewString(a, []byte("x"))
	s.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on over-release")
		}
	}()
	s.Release()
}

func TestConcatShortCircuitsEmptySide(t *testing.T) {
	a := arena.New()
	empty := value.String{}
	full := value.NewString(a, []byte("hi"))

	got := value.Concat(a, empty, full)
	if string(got.Bytes()) != "hi" {
		t.Fatalf("got %q", got.Bytes())
	}
	if n := a.Stats().NumAllocations; n != 1 {
		t.Fatalf("NumAllocations = %d after short-circuit Concat, want 1", n)
	}
	got.Release()
	full.Release()
}

func TestConcatAllocatesForTwoNonEmptySides(t *testing.T) {
	a := arena.New()
	lhs := value.NewString(a, []byte("foo"))
	rhs := value.NewString(a, []byte("bar"))

	got := value.Concat(a, lhs, rhs)
	if string(got.Bytes()) != "foobar" {
		t.Fatalf("got %q", got.Bytes())
	}
	if n := a.Stats().NumAllocations; n != 3 {
		t.Fatalf("NumAllocations = %d after Concat, want 3", n)
	}
	lhs.Release()
	rhs.Release()
	got.Release()
}

func TestCompare(t *testing.T) {
	a := arena.New()
	x := value.NewString(a, []byte("abc"))
	y := value.NewString(a, []byte("abd"))

	if value.Compare(x, x) != 0 {
		t.Fatalf("expected equal strings to compare 0")
	}
	if value.Compare(x, y) >= 0 {
		t.Fatalf("expected x < y")
	}
	x.Release()
	y.Release()
}
