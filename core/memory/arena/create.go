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

package arena

// ArenaAware is implemented by types whose zero value needs the owning
// Arena threaded through before use. Create detects this automatically,
// mirroring the native compiler's rule of recognizing constructors that
// accept the arena as their first argument.
type ArenaAware interface {
	SetArena(Arena)
}

// Create builds a new *T, calling SetArena(a) first when *T implements
// ArenaAware. The record itself lives on the Go heap; only byte buffers
// (pool storage, string data) are ever taken from Allocate/Free.
func Create[T any](a Arena) *T {
	v := new(T)
	if aw, ok := any(v).(ArenaAware); ok {
		aw.SetArena(a)
	}
	return v
}
