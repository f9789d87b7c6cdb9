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

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
)

// Transform is the compiled, reusable recipe for turning one old-schema
// row into a new-schema row (§2 component 4 "Row Transformer"). It is
// built once per (table, schema version) by the Transform Cache and then
// applied to every row the scan driver and the DML hook see.
type Transform struct {
	// Projected is nil when the change needs no column computation — the
	// old row is simply re-typed (sqlbase.OverlayRow) under the new row
	// type. Non-nil when a projection (§4.2) must compute each field.
	Projected *ProjectedRowType
	newType   sqlbase.RowType
	checker   *RowChecker
}

// Apply transforms row into its new-schema image, evaluating the
// projection (if any) and then running the row checker (§4.4). The
// returned error is a *ConstraintViolationError when the row fails the
// new schema's NOT NULL constraints.
func (t *Transform) Apply(ctx context.Context, bindings *Bindings, row sqlbase.Row) (sqlbase.Row, error) {
	var out sqlbase.Row
	if t.Projected == nil {
		out = sqlbase.NewOverlayRow(row, t.newType)
	} else {
		fields := make([]interface{}, len(t.Projected.Exprs))
		for i, e := range t.Projected.Exprs {
			v, err := e.Eval(ctx, bindings, row)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}
		out = sqlbase.NewWireRow(t.Projected.RowType, row.HKey(), fields)
	}
	if t.checker != nil {
		if err := t.checker.Check(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
