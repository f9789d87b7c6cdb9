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
	"fmt"

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

// ConstraintViolationError is returned by the Row Checker (§4.3, §7
// "Row-constraint failures") when a row fails a NOT NULL or domain check
// against the new schema. It carries the row's identity so the caller
// can report which row failed, as spec.md §8 scenario 2 requires.
type ConstraintViolationError struct {
	TableID ID
	HKey    sqlbase.HKey
	Column  string
	Reason  string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violation on table %d, row %s, column %q: %s",
		e.TableID, e.HKey, e.Column, e.Reason)
}

// ID is a local alias so this file and its siblings read naturally
// without importing sqlbase under a different name at every call site.
type ID = sqlbase.ID

// ProjectionError reports a schema-incompatible projection: an
// unresolvable cast or a column the change-set's Changes list cannot
// account for (§4.2, §7 "Schema-inconsistency errors"). These are fatal
// and terminate the online session.
type ProjectionError struct {
	TableID ID
	Column  string
	Reason  string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("cannot project column %q of table %d: %s", e.Column, e.TableID, e.Reason)
}
