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

import "gitee.com/kwbasedb/onlineschema/pkg/sqlbase"

// checker answers "has the writer path already handled this hKey" for one
// row type within one scanner transaction (§4.5). It walks its backing
// iterator forward only, which is safe precisely because the scan itself
// produces rows in ascending hKey order within a group (§4.5 "Ordering
// guarantee" — load-bearing, per the spec).
type checker struct {
	it      HKeyIterator
	pending sqlbase.HKey
	have    bool
}

func newChecker(it HKeyIterator) *checker {
	return &checker{it: it}
}

// seen reports whether hKey has already been recorded by the writer path.
func (c *checker) seen(hKey sqlbase.HKey) bool {
	for {
		if !c.have {
			k, ok := c.it.Next()
			if !ok {
				return false
			}
			c.pending, c.have = k, true
		}
		switch {
		case c.pending.Less(hKey):
			// The tracker recorded a writer hKey the scanner will never
			// reach at this row type (e.g. a row since deleted); drop it
			// and keep walking forward.
			c.have = false
		case hKey.Less(c.pending):
			return false
		default:
			return true
		}
	}
}

// falseChecker always reports "not seen" — used for row types with no
// backing table, per §4.5.
type falseChecker struct{}

func (falseChecker) seen(sqlbase.HKey) bool { return false }

// rowChecker is the minimal interface the scan driver needs from either a
// real checker or the false checker.
type rowChecker interface {
	seen(hKey sqlbase.HKey) bool
}

var _ rowChecker = (*checker)(nil)
var _ rowChecker = falseChecker{}
