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

package capture_test

import (
	"testing"

	"github.com/relaycap/gapimem/capture"
	"github.com/relaycap/gapimem/core/memory/arena"
	"github.com/relaycap/gapimem/database"
	"github.com/relaycap/gapimem/memory"
)

func TestOnSliceEncodedEmitsFirstSightingOnly(t *testing.T) {
	a := arena.New()
	reg := memory.NewRegistry(a)
	db := database.New()

	p := reg.New(4)
	p.Write(a, 0, 4, []byte{1, 2, 3, 4})

	var observations []capture.Observation
	enc := capture.EncoderFunc(func(o capture.Observation) { observations = append(observations, o) })
	s := capture.NewStateSerializer(reg, db, enc)

	s.PrepareForState(func(s *capture.StateSerializer) {
		s.OnSliceEncoded(memory.Slice{Pool: p.ID(), Base: 0, Size: 4})
		s.OnSliceEncoded(memory.Slice{Pool: p.ID(), Base: 0, Size: 4})
	})

	if len(observations) != 1 {
		t.Fatalf("got %d observations, want 1", len(observations))
	}
	got, err := db.Resolve(observations[0].ResID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(got) != "\x01\x02\x03\x04" {
		t.Fatalf("got %v", got)
	}
}

func TestOnSliceEncodedIgnoresApplicationPool(t *testing.T) {
	a := arena.New()
	reg := memory.NewRegistry(a)
	db := database.New()

	var observations []capture.Observation
	enc := capture.EncoderFunc(func(o capture.Observation) { observations = append(observations, o) })
	s := capture.NewStateSerializer(reg, db, enc)

	s.PrepareForState(func(s *capture.StateSerializer) {
		s.OnSliceEncoded(memory.Slice{Pool: memory.ApplicationPool, Base: 0, Size: 4})
	})

	if len(observations) != 0 {
		t.Fatalf("got %d observations, want 0", len(observations))
	}
}

func TestCreatePoolWithoutInitObservationUsesEmptyResource(t *testing.T) {
	a := arena.New()
	reg := memory.NewRegistry(a)
	db := database.New()

	var observations []capture.Observation
	enc := capture.EncoderFunc(func(o capture.Observation) { observations = append(observations, o) })
	s := capture.NewStateSerializer(reg, db, enc)

	id1 := s.CreatePool(128, nil)
	id2 := s.CreatePool(64, nil)

	if len(observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(observations))
	}
	if observations[0].ResID != observations[1].ResID {
		t.Fatalf("expected shared empty-resource id, got %v and %v", observations[0].ResID, observations[1].ResID)
	}
	if observations[0].Pool != id1 || observations[1].Pool != id2 {
		t.Fatalf("observation pool ids do not match created pools")
	}
}

func TestCreatePoolWithInitObservationOverridesFields(t *testing.T) {
	a := arena.New()
	reg := memory.NewRegistry(a)
	db := database.New()

	var observations []capture.Observation
	enc := capture.EncoderFunc(func(o capture.Observation) { observations = append(observations, o) })
	s := capture.NewStateSerializer(reg, db, enc)

	s.CreatePool(16, func(o *capture.Observation) {
		o.Size = 16
		o.ResID = db.Store([]byte("seed"))
	})

	if observations[0].Size != 16 {
		t.Fatalf("Size = %d, want 16", observations[0].Size)
	}
	if want := database.GenerateID([]byte("seed")); observations[0].ResID != want {
		t.Fatalf("ResID = %v, want %v", observations[0].ResID, want)
	}
}
