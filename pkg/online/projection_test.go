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

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
	"gitee.com/kwbasedb/onlineschema/pkg/types"
)

func TestCompileProjectionWidenCastAndDefault(t *testing.T) {
	oldTable := &sqlbase.TableDescriptor{
		ID:   1,
		Name: "t",
		Columns: []sqlbase.ColumnDescriptor{
			{ID: 1, Name: "id", Type: types.T{Class: types.Int}},
			{ID: 2, Name: "amount", Type: types.T{Class: types.Int}},
		},
	}
	lit := "0"
	newTable := &sqlbase.TableDescriptor{
		ID:   1,
		Name: "t",
		Columns: []sqlbase.ColumnDescriptor{
			{ID: 1, Name: "id", Type: types.T{Class: types.Int}},
			{ID: 2, Name: "amount", Type: types.T{Class: types.BigInt}},
			{ID: 3, Name: "note", Type: types.T{Class: types.String, Nullable: true}, DefaultLiteral: &lit},
		},
	}
	cs := sqlbase.ChangeSet{
		TableID:     1,
		ChangeLevel: sqlbase.LevelTable,
		Columns: []sqlbase.Change{
			{Kind: sqlbase.ChangeModify, OldName: "amount", NewName: "amount"},
			{Kind: sqlbase.ChangeAdd, NewName: "note"},
		},
	}

	registry := types.NewRegistry()
	projected, err := CompileProjection(cs, oldTable, newTable, registry)
	require.NoError(t, err)
	require.Len(t, projected.Exprs, 3)

	// id is untouched: a plain field read, no cast.
	_, ok := projected.Exprs[0].(FieldExpr)
	require.True(t, ok)

	// amount widens INT -> BIGINT via a cast.
	cast, ok := projected.Exprs[1].(CastExpr)
	require.True(t, ok)
	require.Equal(t, types.BigInt, cast.Typ.Class)

	// note has no old-side source: a literal default ("0").
	lit2, ok := projected.Exprs[2].(LiteralExpr)
	require.True(t, ok)
	require.Equal(t, "0", lit2.Value)

	oldRow := sqlbase.NewWireRow(sqlbase.RowType{TableID: 1, Table: oldTable}, sqlbase.EncodeHKey(1, 5), []interface{}{int64(5), int64(42)})
	b := NewBindings()
	v0, err := projected.Exprs[0].Eval(context.Background(), b, oldRow)
	require.NoError(t, err)
	require.Equal(t, int64(5), v0)

	v1, err := projected.Exprs[1].Eval(context.Background(), b, oldRow)
	require.NoError(t, err)
	require.Equal(t, int64(42), v1)

	v2, err := projected.Exprs[2].Eval(context.Background(), b, oldRow)
	require.NoError(t, err)
	require.Equal(t, "0", v2)
}

func TestCompileProjectionUnresolvableCastErrors(t *testing.T) {
	oldTable := &sqlbase.TableDescriptor{
		ID: 1,
		Columns: []sqlbase.ColumnDescriptor{
			{ID: 1, Name: "x", Type: types.T{Class: types.String}},
		},
	}
	newTable := &sqlbase.TableDescriptor{
		ID: 1,
		Columns: []sqlbase.ColumnDescriptor{
			{ID: 1, Name: "x", Type: types.T{Class: types.Timestamp}},
		},
	}
	cs := sqlbase.ChangeSet{TableID: 1, ChangeLevel: sqlbase.LevelTable, Columns: []sqlbase.Change{
		{Kind: sqlbase.ChangeModify, OldName: "x", NewName: "x"},
	}}
	_, err := CompileProjection(cs, oldTable, newTable, types.NewRegistry())
	require.Error(t, err)
	var perr *ProjectionError
	require.ErrorAs(t, err, &perr)
}
