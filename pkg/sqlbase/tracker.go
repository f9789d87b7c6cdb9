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

package sqlbase

// Tracker and HKeyIterator are declared at this level, below both
// pkg/online (which implements and consumes them) and pkg/schemamgr
// (which holds one per session), so that neither of those packages needs
// to import the other just to share the type.
type Tracker interface {
	Save(tableID ID, hKey HKey)
	Iterator(tableID ID, start HKey) HKeyIterator
}

// HKeyIterator yields hKeys in ascending order.
type HKeyIterator interface {
	Next() (hKey HKey, ok bool)
}
