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

// Package database implements the content-addressed store the runtime's
// store_in_database callback persists resources into.
//
// The native database resolves records lazily and asynchronously,
// caching decoded objects alongside their raw bytes behind a
// resolve-once machinery of goroutines and cancellable contexts. This
// component only ever needs to give a byte slice a stable, content-
// derived identity and hand it back unchanged later, so this
// reimplementation keeps just that: a synchronous, in-memory,
// SHA1-addressed blob store.
package database

import (
	"crypto/sha1"
	"sync"

	"github.com/pkg/errors"

	"github.com/relaycap/gapimem/core/data/id"
)

// recordKind namespaces the hash so that a blob and some future record
// kind sharing the same bytes never collide.
const recordKind = "<blob>"

// Database is a content-addressed store of byte blobs.
type Database struct {
	mu      sync.RWMutex
	records map[id.ID][]byte
}

// New constructs an empty Database.
func New() *Database {
	return &Database{records: map[id.ID][]byte{}}
}

// GenerateID computes the identifier data would be stored under, without
// storing it.
func GenerateID(data []byte) id.ID {
	h := sha1.New()
	h.Write([]byte(recordKind))
	h.Write([]byte("•"))
	h.Write(data)

	var out id.ID
	copy(out[:], h.Sum(nil))
	return out
}

// Store persists a copy of data and returns its content-derived
// identifier. Storing the same bytes twice returns the same identifier
// and is a no-op the second time.
func (d *Database) Store(data []byte) id.ID {
	rid := GenerateID(data)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.records[rid]; !ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		d.records[rid] = cp
	}
	return rid
}

// Resolve returns the bytes previously stored under rid.
func (d *Database) Resolve(rid id.ID) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, ok := d.records[rid]
	if !ok {
		return nil, errors.Errorf("database: unknown record %s", rid)
	}
	return data, nil
}

// Contains reports whether rid has been stored.
func (d *Database) Contains(rid id.ID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.records[rid]
	return ok
}

// Len returns the number of distinct records stored.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}
