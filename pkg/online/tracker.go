// Copyright (c) 2022-present, Shanghai Yunxi Technology Co, Ltd. All rights reserved.
//
// This software (KWDB) is licensed under Mulan PSL v2.
// You can use this software according to the terms and conditions of the Mulan PSL v2.
// You may obtain a copy of Mulan PSL v2 at:
//          http://license.coscl.org.cn/MulanPSL2
// THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
// EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
// MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
// See the Mulan PSL v2 for more details.

package online

import (
	"sort"
	"sync"

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

// Tracker is the hKey Tracker (§4.7): the shared state scanner and
// writer use to deduplicate work on the same row. Save is safe for
// concurrent callers (writer threads); Iterator is single-reader (one
// checker per scanner transaction) and walks forward only — once a
// checker has advanced past a key it does not revisit it within the same
// scan transaction (§4.5 "Ordering guarantee"). Declared in sqlbase so
// pkg/schemamgr can hold one per session without importing this package.
type Tracker = sqlbase.Tracker

// HKeyIterator yields hKeys in ascending order, starting at or after the
// iterator's start key.
type HKeyIterator = sqlbase.HKeyIterator

// memTracker is the reference Tracker: a persistent (for the lifetime of
// the process) ordered set of hKeys per table id, backed by a sorted
// slice under a mutex. A real deployment would back this with a
// subspace of the store itself for the transactional append/iterate
// semantics §5 requires; an in-memory skip-list-shaped structure is
// acceptable when, as here, there is only one process to observe it
// (§9 "Scanner/writer hand-off").
type memTracker struct {
	mu   sync.Mutex
	sets map[sqlbase.ID]*hkeySet
}

// NewTracker returns a process-local reference Tracker.
func NewTracker() Tracker {
	return &memTracker{sets: map[sqlbase.ID]*hkeySet{}}
}

type hkeySet struct {
	mu     sync.Mutex
	sorted []sqlbase.HKey
	seen   map[string]struct{}
}

// Save implements Tracker. It tolerates duplicate saves of the same
// hKey (§9 Open Question: update-pre/update-post both fire for one
// logical update) via set semantics.
func (t *memTracker) Save(tableID sqlbase.ID, hKey sqlbase.HKey) {
	t.mu.Lock()
	s, ok := t.sets[tableID]
	if !ok {
		s = &hkeySet{seen: map[string]struct{}{}}
		t.sets[tableID] = s
	}
	t.mu.Unlock()

	key := string(hKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	// Insertion keeps s.sorted ordered so Iterator can binary-search its
	// start position; saves are not assumed to arrive in hKey order.
	idx := sort.Search(len(s.sorted), func(i int) bool { return !s.sorted[i].Less(hKey) })
	s.sorted = append(s.sorted, nil)
	copy(s.sorted[idx+1:], s.sorted[idx:])
	s.sorted[idx] = hKey
}

// Iterator implements Tracker. It snapshots the current sorted set so
// that a later Save from a writer thread never mutates an iterator a
// scanner transaction is already walking (§4.7, §5).
func (t *memTracker) Iterator(tableID sqlbase.ID, start sqlbase.HKey) HKeyIterator {
	t.mu.Lock()
	s, ok := t.sets[tableID]
	t.mu.Unlock()
	if !ok {
		return &sliceIterator{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := 0
	if start != nil {
		idx = sort.Search(len(s.sorted), func(i int) bool { return !s.sorted[i].Less(start) })
	}
	snap := make([]sqlbase.HKey, len(s.sorted)-idx)
	copy(snap, s.sorted[idx:])
	return &sliceIterator{keys: snap}
}

type sliceIterator struct {
	keys []sqlbase.HKey
	pos  int
}

func (it *sliceIterator) Next() (sqlbase.HKey, bool) {
	if it.pos >= len(it.keys) {
		return nil, false
	}
	k := it.keys[it.pos]
	it.pos++
	return k, true
}

// falseIterator is an HKeyIterator that yields nothing. The scan driver
// does not use it; its "never seen" answer for row types with no backing
// table comes from falseChecker (checker.go).
type falseIterator struct{}

func (falseIterator) Next() (sqlbase.HKey, bool) { return nil, false }
