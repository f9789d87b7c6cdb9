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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"gitee.com/kwbasedb/onlineschema/pkg/kv"
	"gitee.com/kwbasedb/onlineschema/pkg/kv/memstore"
	"gitee.com/kwbasedb/onlineschema/pkg/settings"
	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
	"gitee.com/kwbasedb/onlineschema/pkg/txnsvc"
	"gitee.com/kwbasedb/onlineschema/pkg/types"
)

func seedGroupTable(store *memstore.Store, tableID sqlbase.ID, table *sqlbase.TableDescriptor, n int64) {
	rowType := sqlbase.RowType{TableID: tableID, Table: table}
	for i := int64(1); i <= n; i++ {
		store.PutInitial(sqlbase.NewWireRow(rowType, sqlbase.EncodeHKey(tableID, i), []interface{}{i, i * 10}))
	}
}

func simpleDriverFixture(t *testing.T, batchRows int64) (*memstore.Store, *ScanDriver, PlanSpec) {
	t.Helper()
	store := memstore.New()
	table := &sqlbase.TableDescriptor{
		ID: 1, ParentID: 1, Name: "t",
		Columns: []sqlbase.ColumnDescriptor{
			{ID: 1, Name: "id", Type: types.T{Class: types.Int}},
			{ID: 2, Name: "val", Type: types.T{Class: types.Int}},
		},
	}
	seedGroupTable(store, 1, table, 5)
	schema := sqlbase.NewSchema(1, table)

	sv := &settings.Values{}
	settings.ScanBatchRows.Override(sv, batchRows)

	cache := NewTransformCache(types.NewRegistry())
	binds := NewBindings()
	driver := NewScanDriver(store, txnsvc.New(store, store), cache, binds, sv)

	cs := sqlbase.ChangeSet{TableID: 1, ChangeLevel: sqlbase.LevelTable}
	spec := PlanSpec{
		GroupPlan:  kv.GroupScanPlan{TableIDs: []sqlbase.ID{1}},
		Schema:     schema,
		ChangeSets: map[sqlbase.ID]sqlbase.ChangeSet{1: cs},
	}
	return store, driver, spec
}

func TestRunPlanVisitsRowsInAscendingOrderAndCommitsPeriodically(t *testing.T) {
	ctx := context.Background()
	store, driver, spec := simpleDriverFixture(t, 2) // force more than one periodic commit over 5 rows

	var seen []sqlbase.HKey
	handler := func(ctx context.Context, txn *kv.Txn, oldRow, newRow sqlbase.Row) error {
		seen = append(seen, oldRow.HKey())
		return store.WriteRow(ctx, txn, newRow, nil, nil)
	}

	err := driver.RunPlan(ctx, spec, nil, handler)
	require.NoError(t, err)
	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		require.True(t, seen[i-1].Less(seen[i]))
	}
	require.Len(t, store.Rows(1), 5)
}

func TestRunPlanSkipsRowsAlreadyHandledByWriter(t *testing.T) {
	ctx := context.Background()
	_, driver, spec := simpleDriverFixture(t, 100)

	tr := NewTracker()
	tr.Save(1, sqlbase.EncodeHKey(1, 3)) // row 3 already migrated by the concurrent DML hook

	trackerIter := func(tableID sqlbase.ID, start sqlbase.HKey) sqlbase.HKeyIterator {
		return tr.Iterator(tableID, start)
	}

	var seen []sqlbase.HKey
	handler := func(ctx context.Context, txn *kv.Txn, oldRow, newRow sqlbase.Row) error {
		seen = append(seen, oldRow.HKey())
		return nil
	}

	err := driver.RunPlan(ctx, spec, trackerIter, handler)
	require.NoError(t, err)
	require.Len(t, seen, 4) // every row except the one the tracker already recorded
	for _, k := range seen {
		require.NotEqual(t, sqlbase.EncodeHKey(1, 3), k)
	}
}

func TestRunPlanRecoversFromRollbackMidScan(t *testing.T) {
	ctx := context.Background()
	store, driver, spec := simpleDriverFixture(t, 100)

	injected := false
	var seen []sqlbase.HKey
	handler := func(ctx context.Context, txn *kv.Txn, oldRow, newRow sqlbase.Row) error {
		if !injected {
			injected = true
			memstore.InjectRollback(txn, "WriteRow", errors.New("simulated lease failure"))
		}
		if err := store.WriteRow(ctx, txn, newRow, nil, nil); err != nil {
			return err
		}
		seen = append(seen, oldRow.HKey())
		return nil
	}

	err := driver.RunPlan(ctx, spec, nil, handler)
	require.NoError(t, err)
	// The first row's handler call failed and was retried after recovery, so
	// every row still lands in seen exactly once.
	require.Len(t, seen, 5)
	require.Len(t, store.Rows(1), 5)
}

func TestRunPlanFatalHandlerErrorAbortsScan(t *testing.T) {
	ctx := context.Background()
	_, driver, spec := simpleDriverFixture(t, 100)

	boom := errors.New("constraint check failed")
	handler := func(ctx context.Context, txn *kv.Txn, oldRow, newRow sqlbase.Row) error {
		return boom
	}

	err := driver.RunPlan(ctx, spec, nil, handler)
	require.ErrorIs(t, err, boom)
}
