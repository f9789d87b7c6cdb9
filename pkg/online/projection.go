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
	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
	"gitee.com/kwbasedb/onlineschema/pkg/types"
)

// ProjectedRowType is a RowType plus the ordered scalar expressions that
// compute each new-schema field from a pre-image row (§3).
type ProjectedRowType struct {
	sqlbase.RowType
	Exprs []Expr
}

// findOldPosition resolves a new column's source position in the old
// table (§4.2 step 1). ok=false with a nil error means the column has no
// old-side source and needs a default expression; a non-nil error is the
// fatal schema-incompatible case.
func findOldPosition(changes []sqlbase.Change, newCol sqlbase.ColumnDescriptor, oldTable *sqlbase.TableDescriptor) (pos int, ok bool, err error) {
	for _, ch := range changes {
		if ch.NewName != newCol.Name {
			continue
		}
		switch ch.Kind {
		case sqlbase.ChangeAdd:
			return 0, false, nil
		case sqlbase.ChangeModify:
			p, found := oldTable.ColumnPosition(ch.OldName)
			if !found {
				return 0, false, &ProjectionError{TableID: oldTable.ID, Column: ch.OldName,
					Reason: "modified column not found in old table"}
			}
			return p, true, nil
		case sqlbase.ChangeDrop:
			// A DROP entry names an old column; it should never match a
			// *new* column's name. If it does, the change-set is
			// internally inconsistent.
			return 0, false, &ProjectionError{TableID: oldTable.ID, Column: newCol.Name,
				Reason: "DROP change matched a new column name"}
		}
	}
	// No change-list entry named this column: look it up directly in
	// the old table by name.
	if p, found := oldTable.ColumnPosition(newCol.Name); found {
		return p, true, nil
	}
	if newCol.Hidden {
		// The auto-generated hidden primary key is always "new" when it
		// has no explicit change-list entry and no old-table match.
		return 0, false, nil
	}
	return 0, false, &ProjectionError{TableID: oldTable.ID, Column: newCol.Name,
		Reason: "column has no old-schema source and no change-list entry"}
}

// CompileProjection builds the ordered expression list for a TABLE/GROUP
// change from oldTable to newTable, given the change-set's column
// alterations (§4.2 "Projection compilation").
func CompileProjection(
	cs sqlbase.ChangeSet, oldTable, newTable *sqlbase.TableDescriptor, registry *types.Registry,
) (*ProjectedRowType, error) {
	exprs := make([]Expr, len(newTable.Columns))
	fields := make([]types.T, len(newTable.Columns))
	for i, newCol := range newTable.Columns {
		pos, found, err := findOldPosition(cs.Columns, newCol, oldTable)
		if err != nil {
			return nil, err
		}
		var e Expr
		if !found {
			e, err = synthesizeDefault(newTable.ID, newCol, registry)
			if err != nil {
				return nil, err
			}
		} else {
			oldCol := oldTable.Columns[pos]
			e = FieldExpr{Pos: pos, Typ: oldCol.Type}
			if !oldCol.Type.SameClass(newCol.Type) {
				cast, ok := registry.ResolveCast(oldCol.Type.Class, newCol.Type.Class)
				if !ok {
					return nil, &ProjectionError{TableID: newTable.ID, Column: newCol.Name,
						Reason: "no cast resolves " + oldCol.Type.String() + " to " + newCol.Type.String()}
				}
				e = CastExpr{Src: e, Cast: cast, Typ: newCol.Type}
			}
		}
		exprs[i] = e
		fields[i] = newCol.Type
	}
	return &ProjectedRowType{
		RowType: sqlbase.RowType{TableID: newTable.ID, Table: newTable, Fields: fields},
		Exprs:   exprs,
	}, nil
}
