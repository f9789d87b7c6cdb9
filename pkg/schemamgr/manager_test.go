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

package schemamgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

func TestManagerBeginGetEnd(t *testing.T) {
	m := NewManager()
	schema := sqlbase.NewSchema(1)
	cs := []sqlbase.ChangeSet{{TableID: 1, ChangeLevel: sqlbase.LevelTable}}

	_, ok := m.Get("sess1")
	require.False(t, ok)

	st := m.Begin("sess1", schema, cs, sqlbase.LevelTable)
	require.True(t, st.IsOnlineActive())
	require.Equal(t, cs, st.GetOnlineChangeSets())
	require.Equal(t, sqlbase.LevelTable, st.GetOnlineChangeLevel())
	require.Same(t, schema, st.GetAIS())

	got, ok := m.Get("sess1")
	require.True(t, ok)
	require.Same(t, st, got)

	m.End("sess1")
	require.False(t, st.IsOnlineActive())
	_, ok = m.Get("sess1")
	require.False(t, ok)

	// Ending an already-ended (or unknown) session is a no-op.
	m.End("sess1")
	m.End("never-existed")
}

func TestManagerBeginReplacesExistingSession(t *testing.T) {
	m := NewManager()
	schema := sqlbase.NewSchema(1)
	first := m.Begin("sess1", schema, nil, sqlbase.LevelIndex)
	second := m.Begin("sess1", schema, nil, sqlbase.LevelTable)

	got, ok := m.Get("sess1")
	require.True(t, ok)
	require.Same(t, second, got)
	require.NotSame(t, first, second)
}

func TestOnlineStateTracksHKeysPerTable(t *testing.T) {
	m := NewManager()
	schema := sqlbase.NewSchema(1)
	st := m.Begin("sess1", schema, nil, sqlbase.LevelTable)

	st.AddOnlineHandledHKey(1, sqlbase.EncodeHKey(1, 5))
	st.AddOnlineHandledHKey(1, sqlbase.EncodeHKey(1, 7))
	st.AddOnlineHandledHKey(2, sqlbase.EncodeHKey(2, 1))

	it := st.GetOnlineHandledHKeyIterator(1, nil)
	var got []sqlbase.HKey
	for {
		k, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, k)
	}
	require.Len(t, got, 2)

	it2 := st.GetOnlineHandledHKeyIterator(2, nil)
	_, ok := it2.Next()
	require.True(t, ok)
	_, ok = it2.Next()
	require.False(t, ok)

	// A table id never touched yields an empty iterator, not a panic.
	it3 := st.GetOnlineHandledHKeyIterator(99, nil)
	_, ok = it3.Next()
	require.False(t, ok)
}
