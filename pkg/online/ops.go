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
	"gitee.com/kwbasedb/onlineschema/pkg/txnsvc"
	"gitee.com/kwbasedb/onlineschema/pkg/types"
)

// Engine wires the online schema change engine's collaborators together
// and exposes the three public operations (§4.8): BuildIndexes,
// CheckTableConstraints, and AlterTable. One Engine is shared by every
// online session against a given store, so the Transform Cache and the
// identity-column Bindings are shared too, matching §4.4's requirement
// that the scanner and the DML hook observe the same sequence state.
type Engine struct {
	store kv.StoreAdapter
	txns  *txnsvc.Service
	cache *TransformCache
	binds *Bindings
	scan  *ScanDriver
	hook  *Hook
	sv    *settings.Values
}

// NewEngine returns an Engine over store, resolving transactions through
// txns and casts/default functions through registry.
func NewEngine(store kv.StoreAdapter, txns *txnsvc.Service, registry *types.Registry, sv *settings.Values) *Engine {
	cache := NewTransformCache(registry)
	binds := NewBindings()
	return &Engine{
		store: store,
		txns:  txns,
		cache: cache,
		binds: binds,
		scan:  NewScanDriver(store, txns, cache, binds, sv),
		hook:  NewHook(cache, binds, store, sv),
		sv:    sv,
	}
}

// Hook returns the engine's concurrent DML hook, for the ordinary write
// path to fire after every insert/update/delete.
func (e *Engine) Hook() *Hook { return e.hook }

// resolvePlanTables resolves the set of table ids a background scan
// should visit: just the change-sets' own tables for an INDEX or
// METADATA_NOT_NULL change (§4.8's filtered group scan), or the whole
// group for a TABLE/GROUP change (§4.8's unfiltered full group scan).
func resolvePlanTables(schema *sqlbase.Schema, changeSets []sqlbase.ChangeSet, fullGroup bool) []sqlbase.ID {
	seen := map[sqlbase.ID]bool{}
	var ids []sqlbase.ID
	add := func(id sqlbase.ID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, cs := range changeSets {
		if !fullGroup {
			add(cs.TableID)
			continue
		}
		root := schema.Root(cs.TableID)
		for _, t := range schema.GroupMembers(root) {
			add(t.ID)
		}
	}
	return ids
}

// changeSetsByTable indexes changeSets by table id, filling in an empty,
// no-op change-set at level for any table in tableIDs the caller didn't
// explicitly alter — a full group scan visits every member of a group
// even when only its root's schema actually changed (§4.2's "no column
// changes" overlay case covers the rest).
func changeSetsByTable(
	changeSets []sqlbase.ChangeSet, tableIDs []sqlbase.ID, level sqlbase.ChangeLevel,
) map[sqlbase.ID]sqlbase.ChangeSet {
	byTable := make(map[sqlbase.ID]sqlbase.ChangeSet, len(tableIDs))
	for _, cs := range changeSets {
		byTable[cs.TableID] = cs
	}
	for _, id := range tableIDs {
		if _, ok := byTable[id]; !ok {
			byTable[id] = sqlbase.ChangeSet{TableID: id, ChangeLevel: level}
		}
	}
	return byTable
}

func (e *Engine) trackerIterFunc(session Session) TrackerIteratorFunc {
	return func(tableID sqlbase.ID, start sqlbase.HKey) sqlbase.HKeyIterator {
		return session.GetOnlineHandledHKeyIterator(tableID, start)
	}
}

// BuildIndexes implements the buildIndexes operation (§4.8): it scans the
// tables named by session's change-sets and populates every index they
// add, including group indexes built exactly once at their leaf-most
// participating table (§4.2 "Tie-breaks").
func (e *Engine) BuildIndexes(ctx context.Context, session Session) error {
	changeSets := session.GetOnlineChangeSets()
	level, err := Classify(changeSets)
	if err != nil {
		return err
	}
	if level != sqlbase.LevelIndex {
		return errors.Newf("online: buildIndexes requires an INDEX-level change set, got %s", level)
	}

	schema := session.GetAIS()
	targets, err := FindIndexesToBuild(changeSets, schema)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	tableIDs := resolvePlanTables(schema, changeSets, false)
	byTable := map[sqlbase.ID][]IndexBuildTarget{}
	for _, t := range targets {
		if t.Index.Category == sqlbase.IndexGroup {
			for _, member := range t.Index.GroupTableIDs {
				byTable[member] = append(byTable[member], t)
			}
		} else {
			byTable[t.TableID] = append(byTable[t.TableID], t)
		}
	}

	spec := PlanSpec{
		GroupPlan:  kv.GroupScanPlan{TableIDs: tableIDs},
		Schema:     schema,
		ChangeSets: changeSetsByTable(changeSets, tableIDs, level),
	}

	handler := func(ctx context.Context, txn *kv.Txn, oldRow, newRow sqlbase.Row) error {
		tableID := oldRow.RowType().TableID
		for _, t := range byTable[tableID] {
			if t.Index.Category == sqlbase.IndexGroup {
				if !schema.IsLeafMost(tableID, t.Index.GroupTableIDs) {
					continue
				}
				if err := e.store.MaintainGroupIndex(ctx, txn, t.Index, kv.GIStore, newRow); err != nil {
					return err
				}
				continue
			}
			if err := e.store.WriteIndexRow(ctx, txn, t.Index, newRow, newRow.HKey()); err != nil {
				return err
			}
		}
		return nil
	}

	return e.scan.RunPlan(ctx, spec, e.trackerIterFunc(session), handler)
}

// CheckTableConstraints implements the checkTableConstraints operation
// (§4.8): it scans every row of a table gaining a NOT NULL constraint and
// fails the session on the first violation, without writing anything
// (the row checker inside Transform.Apply does the actual check).
func (e *Engine) CheckTableConstraints(ctx context.Context, session Session) error {
	changeSets := session.GetOnlineChangeSets()
	level, err := Classify(changeSets)
	if err != nil {
		return err
	}
	if level != sqlbase.MetadataNotNull {
		return errors.Newf("online: checkTableConstraints requires a METADATA_NOT_NULL change set, got %s", level)
	}

	schema := session.GetAIS()
	tableIDs := resolvePlanTables(schema, changeSets, false)
	spec := PlanSpec{
		GroupPlan:  kv.GroupScanPlan{TableIDs: tableIDs},
		Schema:     schema,
		ChangeSets: changeSetsByTable(changeSets, tableIDs, level),
	}

	noop := func(ctx context.Context, txn *kv.Txn, oldRow, newRow sqlbase.Row) error { return nil }
	return e.scan.RunPlan(ctx, spec, e.trackerIterFunc(session), noop)
}

// AlterTable implements the alterTable operation (§4.8): the TABLE/GROUP
// level change that rewrites every row of a group to its new schema,
// scanning the whole group even for members whose own descriptor didn't
// change. oldTables supplies each altered table's pre-image descriptor,
// keyed by table id, for the projection compiler.
func (e *Engine) AlterTable(
	ctx context.Context, session Session, oldTables map[sqlbase.ID]*sqlbase.TableDescriptor,
) error {
	changeSets := session.GetOnlineChangeSets()
	level, err := Classify(changeSets)
	if err != nil {
		return err
	}
	if level != sqlbase.LevelTable && level != sqlbase.LevelGroup {
		return errors.Newf("online: alterTable requires a TABLE or GROUP change set, got %s", level)
	}

	schema := session.GetAIS()
	tableIDs := resolvePlanTables(schema, changeSets, true)
	spec := PlanSpec{
		GroupPlan:  kv.GroupScanPlan{TableIDs: tableIDs},
		Schema:     schema,
		ChangeSets: changeSetsByTable(changeSets, tableIDs, level),
		OldTables:  oldTables,
	}

	handler := func(ctx context.Context, txn *kv.Txn, oldRow, newRow sqlbase.Row) error {
		newTable, ok := schema.Table(newRow.RowType().TableID)
		if !ok {
			return errors.Newf("online: unknown table %d writing row", newRow.RowType().TableID)
		}
		var tableIxs, groupIxs []sqlbase.IndexDescriptor
		for _, ix := range newTable.Indexes {
			if ix.Category == sqlbase.IndexGroup {
				groupIxs = append(groupIxs, ix)
			} else {
				tableIxs = append(tableIxs, ix)
			}
		}
		return e.store.WriteRow(ctx, txn, newRow, tableIxs, groupIxs)
	}

	return e.scan.RunPlan(ctx, spec, e.trackerIterFunc(session), handler)
}
