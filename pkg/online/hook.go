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
	"context"

	"github.com/cockroachdb/errors"

	"gitee.com/kwbasedb/onlineschema/pkg/kv"
	"gitee.com/kwbasedb/onlineschema/pkg/settings"
	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

// Session is the session-scoped state the concurrent DML hook and the
// scan driver's checker both need from an online schema change manager
// (§4.9). It names only sqlbase-typed methods so that any session-keeper
// type satisfies it structurally without this package importing the
// manager that defines one (avoiding an import cycle with pkg/schemamgr,
// which imports this package for Tracker).
type Session interface {
	GetOnlineChangeSets() []sqlbase.ChangeSet
	GetAIS() *sqlbase.Schema
	IsOnlineActive() bool
	AddOnlineHandledHKey(tableID sqlbase.ID, hKey sqlbase.HKey)
	GetOnlineHandledHKeyIterator(tableID sqlbase.ID, start sqlbase.HKey) sqlbase.HKeyIterator
}

// DMLOp is the kind of write the concurrent DML hook is reacting to.
type DMLOp int

// DML operation kinds (§4.6).
const (
	DMLInsert DMLOp = iota
	DMLUpdate
	DMLDelete
)

// Hook is the concurrent DML hook (§2 component 7, §4.6): fired by the
// ordinary write path after every insert/update/delete on a table under
// an active online schema change, it keeps the new-schema artifacts
// (new indexes, or the new row image) in sync with the write that just
// happened at the old schema.
type Hook struct {
	cache *TransformCache
	binds *Bindings
	store kv.StoreAdapter
	sv    *settings.Values
}

// NewHook returns a Hook sharing cache and binds with the background scan
// driver, so an identity column sees the same sequence generator
// regardless of which path advances it first (§4.4).
func NewHook(cache *TransformCache, binds *Bindings, store kv.StoreAdapter, sv *settings.Values) *Hook {
	return &Hook{cache: cache, binds: binds, store: store, sv: sv}
}

// Fire runs the hook for one write to tableID (§4.6). oldTable is the
// pre-image table descriptor, needed only when cs's change level
// requires a projection; it may be nil for an INDEX or METADATA_NOT_NULL
// change, which never compiles one.
func (h *Hook) Fire(
	ctx context.Context,
	txn *kv.Txn,
	session Session,
	tableID sqlbase.ID,
	oldTable *sqlbase.TableDescriptor,
	row sqlbase.Row,
	op DMLOp,
) error {
	// Step 1: identity guard. A write to a table with no active online
	// session touching it is not this hook's concern.
	if !session.IsOnlineActive() {
		return nil
	}

	// Step 2: policy check. An operator can forbid concurrent DML outright
	// while an online change is in flight; honoring that is fatal to the
	// write, not merely a no-op, since skipping the write and returning nil
	// would silently diverge the new schema from the old.
	if settings.ConcurrentDMLDisabled.Get(h.sv) {
		return &sqlbase.NotAllowedByConfigError{TableID: tableID}
	}

	cs, ok := findChangeSet(session.GetOnlineChangeSets(), tableID)
	if !ok {
		// This table isn't a target of the active session.
		return nil
	}

	schema := session.GetAIS()
	var err error
	switch cs.ChangeLevel {
	case sqlbase.MetadataNotNull, sqlbase.LevelIndex:
		err = h.maintainIndexesOnly(ctx, txn, schema, cs, row, op)
	default: // LevelTable, LevelGroup
		err = h.maintainFullRow(ctx, txn, schema, oldTable, cs, row, op)
	}
	if err != nil {
		return err
	}

	session.AddOnlineHandledHKey(tableID, row.HKey())
	return nil
}

func findChangeSet(changeSets []sqlbase.ChangeSet, tableID sqlbase.ID) (sqlbase.ChangeSet, bool) {
	for _, cs := range changeSets {
		if cs.TableID == tableID {
			return cs, true
		}
	}
	return sqlbase.ChangeSet{}, false
}

// maintainIndexesOnly handles METADATA_NOT_NULL and INDEX level changes:
// no row rewrite is needed, only the table indexes named in cs.Indexes
// (§4.6).
func (h *Hook) maintainIndexesOnly(
	ctx context.Context, txn *kv.Txn, schema *sqlbase.Schema, cs sqlbase.ChangeSet, row sqlbase.Row, op DMLOp,
) error {
	table, ok := schema.Table(cs.TableID)
	if !ok {
		return errors.Newf("online: unknown table %d maintaining indexes", cs.TableID)
	}
	for _, ic := range cs.Indexes {
		if ic.Kind != sqlbase.ChangeAdd && ic.Kind != sqlbase.ChangeModify {
			continue
		}
		if ic.Category != sqlbase.IndexTable {
			// Only table-category indexes are maintained here: a group or
			// full-text index named by the change-set gets no entry from
			// this hook.
			continue
		}
		ix, ok := table.Index(ic.NewName)
		if !ok {
			return errors.Newf("online: index %q not found on table %d", ic.NewName, cs.TableID)
		}
		if op == DMLDelete {
			if err := h.store.DeleteIndexRow(ctx, txn, ix, row.HKey()); err != nil {
				return err
			}
			continue
		}
		if err := h.store.WriteIndexRow(ctx, txn, ix, row, row.HKey()); err != nil {
			return err
		}
	}
	return nil
}

// maintainFullRow handles TABLE and GROUP level changes: the row itself
// must be transformed and rewritten (or deleted) under the new schema,
// along with every index the new table descriptor carries (§4.6, §4.4).
func (h *Hook) maintainFullRow(
	ctx context.Context,
	txn *kv.Txn,
	schema *sqlbase.Schema,
	oldTable *sqlbase.TableDescriptor,
	cs sqlbase.ChangeSet,
	row sqlbase.Row,
	op DMLOp,
) error {
	transform, err := h.cache.Get(schema, oldTable, cs)
	if err != nil {
		return err
	}

	if op == DMLDelete {
		del := sqlbase.NewOverlayRow(row, transform.newType)
		if err := h.store.DeleteRow(ctx, txn, del, false); err != nil {
			var nsr *sqlbase.NoSuchRowError
			if errors.As(err, &nsr) {
				// The scanner hasn't promoted this row into the new
				// schema's space yet; nothing to delete is not an error
				// here (§4.6, §6).
				return nil
			}
			return err
		}
		return nil
	}

	newRow, err := transform.Apply(ctx, h.binds, row)
	if err != nil {
		return err
	}

	newTable, ok := schema.Table(cs.TableID)
	if !ok {
		return errors.Newf("online: unknown table %d writing row", cs.TableID)
	}
	var tableIxs, groupIxs []sqlbase.IndexDescriptor
	for _, ix := range newTable.Indexes {
		if ix.Category == sqlbase.IndexGroup {
			groupIxs = append(groupIxs, ix)
		} else {
			tableIxs = append(tableIxs, ix)
		}
	}
	return h.store.WriteRow(ctx, txn, newRow, tableIxs, groupIxs)
}
