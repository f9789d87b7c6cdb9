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

// Package memstore is a reference StoreAdapter: an in-memory, sorted-by-
// hKey table of rows per table id, with copy-on-write transaction
// isolation. It exists only to give the online schema change engine's
// core a real cursor with real ascending-hKey iteration and real
// commit/rollback semantics to drive and be tested against (§4.9); it
// has no MVCC, no disk, and no replication.
package memstore

import (
	"context"
	"sort"
	"sync"

	"gitee.com/kwbasedb/onlineschema/pkg/kv"
	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

// Store is a reference in-memory StoreAdapter.
type Store struct {
	mu sync.Mutex

	rows         map[sqlbase.ID]map[string]sqlbase.Row
	tableIndex   map[sqlbase.IndexID]map[string]struct{} // entries keyed by hKey string
	groupIndex   map[sqlbase.IndexID]map[string]struct{}
}

var _ kv.StoreAdapter = (*Store)(nil)
var _ kv.TxnManager = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		rows:       map[sqlbase.ID]map[string]sqlbase.Row{},
		tableIndex: map[sqlbase.IndexID]map[string]struct{}{},
		groupIndex: map[sqlbase.IndexID]map[string]struct{}{},
	}
}

// txnState is the per-transaction overlay: a snapshot of rows taken at
// Begin for reads, plus buffered writes/deletes applied atomically on
// Commit and discarded on Rollback.
type txnState struct {
	store *Store

	snapshot map[sqlbase.ID]map[string]sqlbase.Row

	writes       map[sqlbase.ID]map[string]sqlbase.Row
	deletes      map[sqlbase.ID]map[string]bool
	tableIxAdd   map[sqlbase.IndexID]map[string]struct{}
	tableIxDel   map[sqlbase.IndexID]map[string]struct{}
	groupIxAdd   map[sqlbase.IndexID]map[string]struct{}
	groupIxDel   map[sqlbase.IndexID]map[string]struct{}

	// forceRollback, when set by a test via InjectRollback, makes the
	// next store call of the named operation on this txn return a
	// *kv.RollbackError (calls of other operations pass through) — modeling
	// the background transaction being forced to roll back mid-scan
	// (§4.5, spec.md §8 scenario 5).
	forceRollback func(op string) error
}

// Begin opens a new transaction, snapshotting the store's current
// committed state for reads.
func (s *Store) Begin(ctx context.Context) *kv.Txn {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(map[sqlbase.ID]map[string]sqlbase.Row, len(s.rows))
	for id, rows := range s.rows {
		m := make(map[string]sqlbase.Row, len(rows))
		for k, v := range rows {
			m[k] = v
		}
		snap[id] = m
	}
	return &kv.Txn{Handle: &txnState{
		store:      s,
		snapshot:   snap,
		writes:     map[sqlbase.ID]map[string]sqlbase.Row{},
		deletes:    map[sqlbase.ID]map[string]bool{},
		tableIxAdd: map[sqlbase.IndexID]map[string]struct{}{},
		tableIxDel: map[sqlbase.IndexID]map[string]struct{}{},
		groupIxAdd: map[sqlbase.IndexID]map[string]struct{}{},
		groupIxDel: map[sqlbase.IndexID]map[string]struct{}{},
	}}
}

func state(txn *kv.Txn) *txnState { return txn.Handle.(*txnState) }

// Commit applies a transaction's buffered writes to the store.
func (s *Store) Commit(ctx context.Context, txn *kv.Txn) error {
	st := state(txn)
	s.mu.Lock()
	defer s.mu.Unlock()
	for tableID, rows := range st.writes {
		m := s.rows[tableID]
		if m == nil {
			m = map[string]sqlbase.Row{}
			s.rows[tableID] = m
		}
		for k, v := range rows {
			m[k] = v
		}
	}
	for tableID, keys := range st.deletes {
		m := s.rows[tableID]
		for k := range keys {
			delete(m, k)
		}
	}
	for ixID, keys := range st.tableIxAdd {
		m := s.tableIndex[ixID]
		if m == nil {
			m = map[string]struct{}{}
			s.tableIndex[ixID] = m
		}
		for k := range keys {
			m[k] = struct{}{}
		}
	}
	for ixID, keys := range st.tableIxDel {
		m := s.tableIndex[ixID]
		for k := range keys {
			delete(m, k)
		}
	}
	for ixID, keys := range st.groupIxAdd {
		m := s.groupIndex[ixID]
		if m == nil {
			m = map[string]struct{}{}
			s.groupIndex[ixID] = m
		}
		for k := range keys {
			m[k] = struct{}{}
		}
	}
	for ixID, keys := range st.groupIxDel {
		m := s.groupIndex[ixID]
		for k := range keys {
			delete(m, k)
		}
	}
	return nil
}

// Rollback discards a transaction's buffered writes.
func (s *Store) Rollback(ctx context.Context, txn *kv.Txn) {}

// InjectRollback arranges for the next call named op on txn to return a
// rollback-class error — a test hook standing in for a real store
// encountering a write-write conflict or a lease failure mid-scan.
func InjectRollback(txn *kv.Txn, op string, cause error) {
	state(txn).forceRollback = func(o string) error {
		if o == op {
			return &kv.RollbackError{Cause: cause}
		}
		return nil
	}
}

func (s *Store) checkInjected(txn *kv.Txn, op string) error {
	st := state(txn)
	if st.forceRollback == nil {
		return nil
	}
	if err := st.forceRollback(op); err != nil {
		st.forceRollback = nil
		return err
	}
	return nil
}

// WriteRow implements kv.StoreAdapter.
func (s *Store) WriteRow(ctx context.Context, txn *kv.Txn, row sqlbase.Row, tableIndexes, groupIndexes []sqlbase.IndexDescriptor) error {
	if err := s.checkInjected(txn, "WriteRow"); err != nil {
		return err
	}
	st := state(txn)
	tableID := row.RowType().TableID
	if st.writes[tableID] == nil {
		st.writes[tableID] = map[string]sqlbase.Row{}
	}
	key := string(row.HKey())
	st.writes[tableID][key] = row
	if st.deletes[tableID] != nil {
		delete(st.deletes[tableID], key)
	}
	for _, ix := range tableIndexes {
		if st.tableIxAdd[ix.ID] == nil {
			st.tableIxAdd[ix.ID] = map[string]struct{}{}
		}
		st.tableIxAdd[ix.ID][key] = struct{}{}
	}
	for _, ix := range groupIndexes {
		if st.groupIxAdd[ix.ID] == nil {
			st.groupIxAdd[ix.ID] = map[string]struct{}{}
		}
		st.groupIxAdd[ix.ID][key] = struct{}{}
	}
	return nil
}

// DeleteRow implements kv.StoreAdapter. cascade is ignored: only row
// itself is deleted, never its descendants in the group.
func (s *Store) DeleteRow(ctx context.Context, txn *kv.Txn, row sqlbase.Row, cascade bool) error {
	if err := s.checkInjected(txn, "DeleteRow"); err != nil {
		return err
	}
	st := state(txn)
	tableID := row.RowType().TableID
	key := string(row.HKey())

	_, existsInSnapshot := st.snapshot[tableID][key]
	_, existsInWrites := st.writes[tableID][key]
	if !existsInSnapshot && !existsInWrites {
		return &sqlbase.NoSuchRowError{TableID: tableID, HKey: row.HKey()}
	}
	if st.deletes[tableID] == nil {
		st.deletes[tableID] = map[string]bool{}
	}
	st.deletes[tableID][key] = true
	if st.writes[tableID] != nil {
		delete(st.writes[tableID], key)
	}
	return nil
}

// WriteIndexRow implements kv.StoreAdapter.
func (s *Store) WriteIndexRow(ctx context.Context, txn *kv.Txn, index sqlbase.IndexDescriptor, row sqlbase.Row, hKey sqlbase.HKey) error {
	if err := s.checkInjected(txn, "WriteIndexRow"); err != nil {
		return err
	}
	st := state(txn)
	if st.tableIxAdd[index.ID] == nil {
		st.tableIxAdd[index.ID] = map[string]struct{}{}
	}
	key := string(hKey)
	st.tableIxAdd[index.ID][key] = struct{}{}
	if st.tableIxDel[index.ID] != nil {
		delete(st.tableIxDel[index.ID], key)
	}
	return nil
}

// DeleteIndexRow implements kv.StoreAdapter.
func (s *Store) DeleteIndexRow(ctx context.Context, txn *kv.Txn, index sqlbase.IndexDescriptor, hKey sqlbase.HKey) error {
	if err := s.checkInjected(txn, "DeleteIndexRow"); err != nil {
		return err
	}
	st := state(txn)
	if st.tableIxDel[index.ID] == nil {
		st.tableIxDel[index.ID] = map[string]struct{}{}
	}
	key := string(hKey)
	st.tableIxDel[index.ID][key] = struct{}{}
	if st.tableIxAdd[index.ID] != nil {
		delete(st.tableIxAdd[index.ID], key)
	}
	return nil
}

// MaintainGroupIndex implements kv.StoreAdapter.
func (s *Store) MaintainGroupIndex(ctx context.Context, txn *kv.Txn, index sqlbase.IndexDescriptor, action kv.GIAction, row sqlbase.Row) error {
	if err := s.checkInjected(txn, "MaintainGroupIndex"); err != nil {
		return err
	}
	st := state(txn)
	key := string(row.HKey())
	switch action {
	case kv.GIStore:
		if st.groupIxAdd[index.ID] == nil {
			st.groupIxAdd[index.ID] = map[string]struct{}{}
		}
		st.groupIxAdd[index.ID][key] = struct{}{}
	case kv.GIRemove:
		if st.groupIxDel[index.ID] == nil {
			st.groupIxDel[index.ID] = map[string]struct{}{}
		}
		st.groupIxDel[index.ID][key] = struct{}{}
	}
	return nil
}

// OpenGroupScan implements kv.StoreAdapter.
func (s *Store) OpenGroupScan(ctx context.Context, txn *kv.Txn, plan kv.GroupScanPlan) (kv.Cursor, error) {
	st := state(txn)
	var rows []sqlbase.Row
	for _, tableID := range plan.TableIDs {
		for _, row := range st.snapshot[tableID] {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].HKey().Less(rows[j].HKey()) })
	return &cursor{rows: rows}, nil
}

// PutInitial seeds the store with rows outside of any transaction —
// test/fixture setup, standing in for data already present before an
// online schema change session begins.
func (s *Store) PutInitial(row sqlbase.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tableID := row.RowType().TableID
	if s.rows[tableID] == nil {
		s.rows[tableID] = map[string]sqlbase.Row{}
	}
	s.rows[tableID][string(row.HKey())] = row
}

// TableIndexEntries returns the set of hKeys (as strings) with an entry
// in the named table index, for test assertions.
func (s *Store) TableIndexEntries(id sqlbase.IndexID) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.tableIndex[id]))
	for k := range s.tableIndex[id] {
		out[k] = struct{}{}
	}
	return out
}

// Rows returns a snapshot of every currently-committed row of tableID,
// for test assertions.
func (s *Store) Rows(tableID sqlbase.ID) []sqlbase.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sqlbase.Row, 0, len(s.rows[tableID]))
	for _, r := range s.rows[tableID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HKey().Less(out[j].HKey()) })
	return out
}

type cursor struct {
	rows []sqlbase.Row
	pos  int
}

func (c *cursor) Next(ctx context.Context) (sqlbase.Row, bool, error) {
	if c.pos >= len(c.rows) {
		return nil, false, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, true, nil
}

func (c *cursor) Rebind(ctx context.Context, from sqlbase.HKey) error {
	pos := 0
	if from != nil {
		for pos < len(c.rows) && !from.Less(c.rows[pos].HKey()) {
			pos++
		}
	}
	c.pos = pos
	return nil
}

func (c *cursor) Close(ctx context.Context) {}
