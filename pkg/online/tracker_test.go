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

func TestTrackerSaveDedupesAndOrders(t *testing.T) {
	tr := NewTracker()
	tr.Save(1, sqlbase.EncodeHKey(1, 3))
	tr.Save(1, sqlbase.EncodeHKey(1, 1))
	tr.Save(1, sqlbase.EncodeHKey(1, 2))
	tr.Save(1, sqlbase.EncodeHKey(1, 1)) // duplicate save, must not appear twice

	it := tr.Iterator(1, nil)
	var got []sqlbase.HKey
	for {
		k, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, k)
	}
	require.Len(t, got, 3)
	require.True(t, got[0].Less(got[1]))
	require.True(t, got[1].Less(got[2]))
}

func TestTrackerIteratorSnapshotsAtCallTime(t *testing.T) {
	tr := NewTracker()
	tr.Save(1, sqlbase.EncodeHKey(1, 1))
	it := tr.Iterator(1, nil)
	tr.Save(1, sqlbase.EncodeHKey(1, 2)) // saved after the iterator was taken

	var count int
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 1, count)
}

func TestCheckerDropsStaleEntriesAndAnswersEquality(t *testing.T) {
	tr := NewTracker()
	tr.Save(1, sqlbase.EncodeHKey(1, 1)) // never reached by the scan below
	tr.Save(1, sqlbase.EncodeHKey(1, 3))

	c := newChecker(tr.Iterator(1, nil))
	require.False(t, c.seen(sqlbase.EncodeHKey(1, 2)))
	require.True(t, c.seen(sqlbase.EncodeHKey(1, 3)))
	require.False(t, c.seen(sqlbase.EncodeHKey(1, 4)))
}

func TestFalseCheckerNeverSeen(t *testing.T) {
	var c rowChecker = falseChecker{}
	require.False(t, c.seen(sqlbase.EncodeHKey(1, 1)))
}
