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

// RowChecker verifies NOT NULL and domain constraints on a row against
// the new schema (§4.3's sibling, the component named "Row Checker" in
// §2 item 3). It is bound to the new table descriptor so it checks the
// row under the schema the change is migrating *to*.
type RowChecker struct {
	table *sqlbase.TableDescriptor
}

// NewRowChecker returns a RowChecker bound to table.
func NewRowChecker(table *sqlbase.TableDescriptor) *RowChecker {
	return &RowChecker{table: table}
}

// Check verifies row against r.table's NOT NULL constraints. Domain
// constraints beyond nullability (CHECK expressions, etc.) are a planner/
// query-context concern out of this module's scope (§1); Check covers
// the METADATA_NOT_NULL level's sole migration concern.
func (r *RowChecker) Check(row sqlbase.Row) error {
	for i, col := range r.table.Columns {
		if col.Type.Nullable {
			continue
		}
		if row.Field(i) == nil {
			return &ConstraintViolationError{
				TableID: r.table.ID,
				HKey:    row.HKey(),
				Column:  col.Name,
				Reason:  "NOT NULL constraint violated",
			}
		}
	}
	return nil
}
