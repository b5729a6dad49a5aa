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

// Package capture turns the pool state a command touched into the
// stream of memory.Observation records a capture file is built from.
package capture

import (
	"github.com/relaycap/gapimem/core/data/id"
	"github.com/relaycap/gapimem/database"
	"github.com/relaycap/gapimem/memory"
)

// Observation is the wire record emitted the first time a given pool is
// seen while serializing a command's arguments or the global state: the
// pool's entire content at base 0, addressed by whatever resource id it
// was stored under.
type Observation struct {
	Pool  memory.PoolID
	Base  uint64
	Size  uint64
	ResID id.ID
}

// Encoder receives every Observation a StateSerializer produces, in
// emission order.
type Encoder interface {
	EncodeObservation(o Observation)
}

// EncoderFunc adapts a function to an Encoder.
type EncoderFunc func(o Observation)

func (f EncoderFunc) EncodeObservation(o Observation) { f(o) }

// StateSerializer walks the slices a command or the global state
// touches and, the first time it encounters a pool, emits an
// Observation carrying that pool's full content. Subsequent
// encounters of the same pool within one serialization pass are
// skipped: the pool's content was already captured.
type StateSerializer struct {
	registry *memory.Registry
	db       *database.Database
	enc      Encoder

	seen          map[memory.PoolID]bool
	emptyResource *id.ID
}

// NewStateSerializer constructs a StateSerializer over reg, storing
// resource bytes into db and emitting through enc.
func NewStateSerializer(reg *memory.Registry, db *database.Database, enc Encoder) *StateSerializer {
	return &StateSerializer{registry: reg, db: db, enc: enc, seen: map[memory.PoolID]bool{}}
}

// PrepareForState resets the seen-pool set and runs fn, which is
// expected to walk some root value (a command's arguments, or the
// global state) and call OnSliceEncoded for every slice it serializes.
func (s *StateSerializer) PrepareForState(fn func(*StateSerializer)) {
	s.seen = map[memory.PoolID]bool{}
	fn(s)
}

// OnSliceEncoded is called by the value encoder each time it serializes
// a slice. The first time a given non-application pool is seen during
// the current PrepareForState pass, its entire buffer is stored in the
// database and an Observation naming it is emitted.
func (s *StateSerializer) OnSliceEncoded(sl memory.Slice) {
	poolID := sl.Pool
	if poolID == memory.ApplicationPool || s.seen[poolID] {
		return
	}
	s.seen[poolID] = true

	pool := s.registry.Get(poolID)
	buf, owned := pool.Read(s.registry.Arena(), 0, pool.Size())
	if owned {
		defer s.registry.Arena().Free(buf)
	}

	resID := s.db.Store(buf)
	s.enc.EncodeObservation(Observation{Pool: poolID, Base: 0, Size: pool.Size(), ResID: resID})
}

// CreatePool allocates a new pool of the given size, marks it seen for
// the current serialization pass so a later OnSliceEncoded for it is a
// no-op, and emits its describing Observation.
//
// When initObservation is nil, the emitted Observation describes an
// empty resource, lazily stored once and reused for every pool created
// this way - the pool has no content yet, only a reserved id and size.
func (s *StateSerializer) CreatePool(size uint64, initObservation func(*Observation)) memory.PoolID {
	pool := s.registry.New(size)
	s.seen[pool.ID()] = true

	obs := Observation{Pool: pool.ID(), Base: 0}
	if initObservation != nil {
		initObservation(&obs)
	} else {
		obs.Size = 0
		obs.ResID = s.emptyResourceID()
	}
	s.enc.EncodeObservation(obs)
	return pool.ID()
}

func (s *StateSerializer) emptyResourceID() id.ID {
	if s.emptyResource == nil {
		rid := s.db.Store(nil)
		s.emptyResource = &rid
	}
	return *s.emptyResource
}
