// Copyright (C) 2017 Google Inc.
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

// Package interval implements an ordered, non-overlapping list of
// [start,end) intervals carrying an arbitrary payload, generalizing the
// CustomIntervalList<T> template used by the native pool implementation.
package interval

import "sort"

// Payload is the contract a value must satisfy to be stored in a List.
// Adjust returns a new value narrowed or widened to [start,end); payload
// values are treated as immutable, so splitting an interval is just
// producing two adjusted copies that may go on sharing whatever backing
// storage the original referenced.
type Payload[P any] interface {
	// Start returns the inclusive start of the interval's extent.
	Start() uint64
	// End returns the exclusive end of the interval's extent.
	End() uint64
	// Adjust returns a copy of the receiver narrowed or widened to the
	// given extent.
	Adjust(start, end uint64) P
}

// List holds an ordered, non-overlapping set of intervals of type P,
// kept sorted by Start().
type List[P Payload[P]] struct {
	items []P
}

// Len returns the number of intervals currently stored.
func (l *List[P]) Len() int { return len(l.items) }

// All returns every stored interval, in ascending Start() order. The
// returned slice is a copy and safe for the caller to retain.
func (l *List[P]) All() []P {
	out := make([]P, len(l.items))
	copy(out, l.items)
	return out
}

// bounds returns the half-open index range [start,end) of items in l
// whose extent overlaps [lo,hi).
func (l *List[P]) bounds(lo, hi uint64) (start, end int) {
	items := l.items
	start = sort.Search(len(items), func(i int) bool { return items[i].End() > lo })
	end = sort.Search(len(items), func(i int) bool { return items[i].Start() >= hi })
	if end < start {
		end = start
	}
	return start, end
}

// Intersect returns every stored interval whose extent overlaps
// [lo,hi), in ascending Start() order. The result is a copy.
func (l *List[P]) Intersect(lo, hi uint64) []P {
	start, end := l.bounds(lo, hi)
	out := make([]P, end-start)
	copy(out, l.items[start:end])
	return out
}

// Replace inserts p, truncating, splitting or removing any existing
// interval that overlaps [p.Start(), p.End()) so that p becomes
// authoritative for its full extent. No two stored intervals overlap
// after Replace returns.
func (l *List[P]) Replace(p P) {
	lo, hi := p.Start(), p.End()
	start, end := l.bounds(lo, hi)
	overlapping := l.items[start:end]

	out := make([]P, 0, len(l.items)-(end-start)+3)
	out = append(out, l.items[:start]...)

	for _, e := range overlapping {
		if e.Start() < lo {
			out = append(out, e.Adjust(e.Start(), lo))
		}
	}

	out = append(out, p)

	for _, e := range overlapping {
		if e.End() > hi {
			out = append(out, e.Adjust(hi, e.End()))
		}
	}

	out = append(out, l.items[end:]...)
	l.items = out
}
