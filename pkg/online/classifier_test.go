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
	"testing"

	"github.com/stretchr/testify/require"

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

func TestClassifyEmpty(t *testing.T) {
	_, err := Classify(nil)
	require.ErrorIs(t, err, sqlbase.ErrEmptyChangeSets)
}

func TestClassifyMixedLevels(t *testing.T) {
	_, err := Classify([]sqlbase.ChangeSet{
		{TableID: 1, ChangeLevel: sqlbase.LevelIndex},
		{TableID: 2, ChangeLevel: sqlbase.LevelTable},
	})
	require.ErrorIs(t, err, sqlbase.ErrMixedChangeLevels)
}

func TestClassifyDuplicateTable(t *testing.T) {
	_, err := Classify([]sqlbase.ChangeSet{
		{TableID: 1, ChangeLevel: sqlbase.LevelIndex},
		{TableID: 1, ChangeLevel: sqlbase.LevelIndex},
	})
	require.ErrorIs(t, err, sqlbase.ErrDuplicateTableID)
}

func TestClassifyAgreement(t *testing.T) {
	level, err := Classify([]sqlbase.ChangeSet{
		{TableID: 1, ChangeLevel: sqlbase.LevelGroup},
		{TableID: 2, ChangeLevel: sqlbase.LevelGroup},
	})
	require.NoError(t, err)
	require.Equal(t, sqlbase.LevelGroup, level)
}

func TestFindIndexesToBuildDedupesGroupIndex(t *testing.T) {
	parentIdx := sqlbase.IndexDescriptor{
		ID: 10, Name: "gi", Category: sqlbase.IndexGroup, GroupTableIDs: []sqlbase.ID{1, 2},
	}
	parent := &sqlbase.TableDescriptor{ID: 1, Name: "parent", Indexes: []sqlbase.IndexDescriptor{parentIdx}}
	child := &sqlbase.TableDescriptor{ID: 2, ParentID: 1, Name: "child", Indexes: []sqlbase.IndexDescriptor{parentIdx}}
	schema := sqlbase.NewSchema(1, parent, child)

	changeSets := []sqlbase.ChangeSet{
		{TableID: 1, ChangeLevel: sqlbase.LevelIndex, Indexes: []sqlbase.IndexChange{
			{Kind: sqlbase.ChangeAdd, Category: sqlbase.IndexGroup, NewName: "gi"},
		}},
		{TableID: 2, ChangeLevel: sqlbase.LevelIndex, Indexes: []sqlbase.IndexChange{
			{Kind: sqlbase.ChangeAdd, Category: sqlbase.IndexGroup, NewName: "gi"},
		}},
	}

	targets, err := FindIndexesToBuild(changeSets, schema)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, "gi", targets[0].Index.Name)
}
