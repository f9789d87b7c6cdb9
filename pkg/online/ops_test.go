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

	"github.com/stretchr/testify/require"

	"gitee.com/kwbasedb/onlineschema/pkg/kv/memstore"
	"gitee.com/kwbasedb/onlineschema/pkg/settings"
	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
	"gitee.com/kwbasedb/onlineschema/pkg/txnsvc"
	"gitee.com/kwbasedb/onlineschema/pkg/types"
)

// fakeSession is a minimal online.Session for exercising the public
// operations without pulling in pkg/schemamgr (which itself depends on
// this package).
type fakeSession struct {
	changeSets []sqlbase.ChangeSet
	schema     *sqlbase.Schema
	active     bool
	tracker    sqlbase.Tracker
}

func newFakeSession(schema *sqlbase.Schema, changeSets []sqlbase.ChangeSet) *fakeSession {
	return &fakeSession{schema: schema, changeSets: changeSets, active: true, tracker: NewTracker()}
}

func (s *fakeSession) GetOnlineChangeSets() []sqlbase.ChangeSet { return s.changeSets }
func (s *fakeSession) GetAIS() *sqlbase.Schema                  { return s.schema }
func (s *fakeSession) IsOnlineActive() bool                     { return s.active }
func (s *fakeSession) AddOnlineHandledHKey(tableID sqlbase.ID, hKey sqlbase.HKey) {
	s.tracker.Save(tableID, hKey)
}
func (s *fakeSession) GetOnlineHandledHKeyIterator(tableID sqlbase.ID, start sqlbase.HKey) sqlbase.HKeyIterator {
	return s.tracker.Iterator(tableID, start)
}

var _ Session = (*fakeSession)(nil)

func TestAlterTableWidensColumnAcrossExistingRows(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	oldTable := &sqlbase.TableDescriptor{
		ID: 1, ParentID: 1, Name: "accounts",
		Columns: []sqlbase.ColumnDescriptor{
			{ID: 1, Name: "id", Type: types.T{Class: types.Int}},
			{ID: 2, Name: "balance", Type: types.T{Class: types.Int}},
		},
	}
	newTable := &sqlbase.TableDescriptor{
		ID: 1, ParentID: 1, Name: "accounts",
		Columns: []sqlbase.ColumnDescriptor{
			{ID: 1, Name: "id", Type: types.T{Class: types.Int}},
			{ID: 2, Name: "balance", Type: types.T{Class: types.BigInt}},
		},
	}
	schema := sqlbase.NewSchema(2, newTable)

	oldRowType := sqlbase.RowType{TableID: 1, Table: oldTable}
	for i := int64(1); i <= 3; i++ {
		store.PutInitial(sqlbase.NewWireRow(oldRowType, sqlbase.EncodeHKey(1, i), []interface{}{i, i * 100}))
	}

	cs := sqlbase.ChangeSet{
		TableID:     1,
		ChangeLevel: sqlbase.LevelTable,
		Columns: []sqlbase.Change{
			{Kind: sqlbase.ChangeModify, OldName: "balance", NewName: "balance"},
		},
	}
	session := newFakeSession(schema, []sqlbase.ChangeSet{cs})

	engine := NewEngine(store, txnsvc.New(store, store), types.NewRegistry(), &settings.Values{})
	err := engine.AlterTable(ctx, session, map[sqlbase.ID]*sqlbase.TableDescriptor{1: oldTable})
	require.NoError(t, err)

	rows := store.Rows(1)
	require.Len(t, rows, 3)
	for _, r := range rows {
		require.Equal(t, newTable, r.RowType().Table)
		bal := r.Field(1)
		v, ok := bal.(int64)
		require.True(t, ok)
		require.True(t, v == 100 || v == 200 || v == 300)
	}
}

func TestCheckTableConstraintsFailsOnNull(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	table := &sqlbase.TableDescriptor{
		ID: 1, Name: "t",
		Columns: []sqlbase.ColumnDescriptor{
			{ID: 1, Name: "id", Type: types.T{Class: types.Int}},
			{ID: 2, Name: "name", Type: types.T{Class: types.String}},
		},
	}
	schema := sqlbase.NewSchema(1, table)
	rowType := sqlbase.RowType{TableID: 1, Table: table}
	store.PutInitial(sqlbase.NewWireRow(rowType, sqlbase.EncodeHKey(1, 1), []interface{}{int64(1), nil}))

	cs := sqlbase.ChangeSet{TableID: 1, ChangeLevel: sqlbase.MetadataNotNull}
	session := newFakeSession(schema, []sqlbase.ChangeSet{cs})

	engine := NewEngine(store, txnsvc.New(store, store), types.NewRegistry(), &settings.Values{})
	err := engine.CheckTableConstraints(ctx, session)
	require.Error(t, err)
	var cv *ConstraintViolationError
	require.ErrorAs(t, err, &cv)
	require.Equal(t, "name", cv.Column)
}

func TestBuildIndexesPopulatesTableIndex(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	ix := sqlbase.IndexDescriptor{ID: 5, Name: "idx_name", Category: sqlbase.IndexTable, ColumnIDs: []sqlbase.ColumnID{2}}
	table := &sqlbase.TableDescriptor{
		ID: 1, Name: "t",
		Columns: []sqlbase.ColumnDescriptor{
			{ID: 1, Name: "id", Type: types.T{Class: types.Int}},
			{ID: 2, Name: "name", Type: types.T{Class: types.String}},
		},
		Indexes: []sqlbase.IndexDescriptor{ix},
	}
	schema := sqlbase.NewSchema(1, table)
	rowType := sqlbase.RowType{TableID: 1, Table: table}
	store.PutInitial(sqlbase.NewWireRow(rowType, sqlbase.EncodeHKey(1, 1), []interface{}{int64(1), "alice"}))
	store.PutInitial(sqlbase.NewWireRow(rowType, sqlbase.EncodeHKey(1, 2), []interface{}{int64(2), "bob"}))

	cs := sqlbase.ChangeSet{
		TableID:     1,
		ChangeLevel: sqlbase.LevelIndex,
		Indexes: []sqlbase.IndexChange{
			{Kind: sqlbase.ChangeAdd, Category: sqlbase.IndexTable, NewName: "idx_name"},
		},
	}
	session := newFakeSession(schema, []sqlbase.ChangeSet{cs})

	engine := NewEngine(store, txnsvc.New(store, store), types.NewRegistry(), &settings.Values{})
	err := engine.BuildIndexes(ctx, session)
	require.NoError(t, err)

	entries := store.TableIndexEntries(5)
	require.Len(t, entries, 2)
}

func TestHookFiresNoOpWhenSessionInactive(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	engine := NewEngine(store, txnsvc.New(store, store), types.NewRegistry(), &settings.Values{})

	session := newFakeSession(sqlbase.NewSchema(1), nil)
	session.active = false

	txn := store.Begin(ctx)
	row := sqlbase.NewWireRow(sqlbase.RowType{TableID: 1}, sqlbase.EncodeHKey(1, 1), nil)
	err := engine.Hook().Fire(ctx, txn, session, 1, nil, row, DMLInsert)
	require.NoError(t, err)
}

func TestHookRejectsConcurrentDMLWhenDisabled(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	sv := &settings.Values{}
	settings.ConcurrentDMLDisabled.Override(sv, true)

	table := &sqlbase.TableDescriptor{ID: 1, Columns: []sqlbase.ColumnDescriptor{{ID: 1, Name: "id", Type: types.T{Class: types.Int}}}}
	schema := sqlbase.NewSchema(1, table)
	cs := sqlbase.ChangeSet{TableID: 1, ChangeLevel: sqlbase.LevelTable}
	session := newFakeSession(schema, []sqlbase.ChangeSet{cs})

	engine := NewEngine(store, txnsvc.New(store, store), types.NewRegistry(), sv)
	txn := store.Begin(ctx)
	row := sqlbase.NewWireRow(sqlbase.RowType{TableID: 1, Table: table}, sqlbase.EncodeHKey(1, 1), []interface{}{int64(1)})
	err := engine.Hook().Fire(ctx, txn, session, 1, table, row, DMLInsert)
	require.Error(t, err)
	var cfgErr *sqlbase.NotAllowedByConfigError
	require.ErrorAs(t, err, &cfgErr)
}
