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

// Package kv narrows the underlying ordered key/value store to the
// surface the online schema change engine consumes (§6 "Consumed from
// the store"): a group-scan cursor, row and index-row writes/deletes,
// and group-index maintenance entry points. The store itself — its MVCC
// model, range splitting, replication — is out of scope (§1); this
// package only fixes the interface shape the core engine is written
// against, the way the teacher's sql/row and sql/tablewriter packages
// are written against kv.Txn/kv.Batch without reimplementing Pebble.
package kv

import (
	"context"

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

// Txn is an opaque handle to one store transaction, obtained from the
// transaction service (pkg/txnsvc) and passed to every StoreAdapter call
// so that a StoreAdapter implementation can be shared across sessions
// while transactions are not.
type Txn struct {
	// Handle is the store-specific transaction state; concrete
	// StoreAdapter implementations type-assert it to their own type.
	Handle interface{}
}

// GIAction is the action a group-index maintenance call performs.
type GIAction int

// Group-index maintenance actions (§4.6, §4.8).
const (
	GIStore GIAction = iota
	GIRemove
)

// GroupScanPlan describes a scan over a group: the caller (the public
// operations in pkg/online) resolves group membership against the schema
// — every table under a root, optionally filtered to the row types a
// given change level cares about (§4.8's "filtered group scan" for
// buildIndexes/checkTableConstraints vs. the unfiltered full group scan
// for alterTable) — and passes the resolved table id list down, since the
// store itself has no notion of the AIS's group structure (§1 "Out of
// scope collaborators").
type GroupScanPlan struct {
	// TableIDs is the resolved set of tables to scan; rows from all of
	// them are merged into a single ascending-hKey stream.
	TableIDs []sqlbase.ID
}

// Cursor iterates a group scan's rows in ascending hKey order (§4.5
// "Ordering guarantee"), and supports rebinding to resume after a
// rollback (§4.5).
type Cursor interface {
	// Next advances the cursor and returns the next row, or ok=false at
	// end of scan.
	Next(ctx context.Context) (row sqlbase.Row, ok bool, err error)
	// Rebind repositions the cursor's underlying leaf operator to start
	// strictly after from (or at the beginning of the scan if from is
	// nil), per §4.5's rollback recovery.
	Rebind(ctx context.Context, from sqlbase.HKey) error
	// Close releases the cursor's resources.
	Close(ctx context.Context)
}

// TxnManager opens and resolves store transactions (§4.9's transaction
// service collaborator wraps exactly this). It is split out from
// StoreAdapter because the transaction service, not the scan driver or
// the DML hook, is the only caller that begins or resolves transactions.
type TxnManager interface {
	Begin(ctx context.Context) *Txn
	Commit(ctx context.Context, txn *Txn) error
	Rollback(ctx context.Context, txn *Txn)
}

// StoreAdapter is the store surface the online engine consumes (§6).
type StoreAdapter interface {
	// OpenGroupScan opens a Cursor over plan within txn.
	OpenGroupScan(ctx context.Context, txn *Txn, plan GroupScanPlan) (Cursor, error)

	// WriteRow writes row and maintains tableIndexes and groupIndexes.
	WriteRow(ctx context.Context, txn *Txn, row sqlbase.Row, tableIndexes []sqlbase.IndexDescriptor, groupIndexes []sqlbase.IndexDescriptor) error

	// DeleteRow deletes row; cascade propagates to the row's descendants
	// in its group, as a real child-row cleanup would require.
	DeleteRow(ctx context.Context, txn *Txn, row sqlbase.Row, cascade bool) error

	// WriteIndexRow writes one entry of a table index for row at hKey.
	WriteIndexRow(ctx context.Context, txn *Txn, index sqlbase.IndexDescriptor, row sqlbase.Row, hKey sqlbase.HKey) error

	// DeleteIndexRow removes one entry of a table index for hKey.
	DeleteIndexRow(ctx context.Context, txn *Txn, index sqlbase.IndexDescriptor, hKey sqlbase.HKey) error

	// MaintainGroupIndex stores or removes row's entry in a group index.
	MaintainGroupIndex(ctx context.Context, txn *Txn, index sqlbase.IndexDescriptor, action GIAction, row sqlbase.Row) error
}

// RollbackError marks an error as rollback-class (§7): recoverable at the
// scan-driver level via rebind. Everything else propagates.
type RollbackError struct {
	Cause error
}

func (e *RollbackError) Error() string { return "rollback: " + e.Cause.Error() }

// Unwrap supports errors.Is/errors.As over the wrapped cause.
func (e *RollbackError) Unwrap() error { return e.Cause }

// IsRollbackClass reports whether err is (or wraps) a RollbackError.
func IsRollbackClass(err error) bool {
	var r *RollbackError
	return asRollback(err, &r)
}

func asRollback(err error, target **RollbackError) bool {
	for err != nil {
		if r, ok := err.(*RollbackError); ok {
			*target = r
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
